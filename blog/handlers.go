package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
)

// BasePath is where the blog is mounted.
const BasePath = "/blog"

const (
	sessionCommentName  = "comment_name"
	sessionCommentEmail = "comment_email"
)

type siteData struct {
	Title       string
	Description string
	BasePath    string
}

// ListViewData is the data structure for the post list page.
type ListViewData struct {
	Site  siteData
	Posts []Post
	Tag   *Tag
	Page  Page
}

// DetailViewData is the data structure for the single post page.
type DetailViewData struct {
	Site     siteData
	Post     *Post
	Comments []Comment
	Form     CommentForm
	Errors   FormErrors
	Similar  []RelatedPost
}

type ShareViewData struct {
	Site   siteData
	Post   *Post
	Form   EmailPostForm
	Errors FormErrors
	Sent   bool
}

type CommentViewData struct {
	Site    siteData
	Post    *Post
	Form    CommentForm
	Errors  FormErrors
	Comment *Comment
}

type SearchViewData struct {
	Site      siteData
	Form      SearchForm
	Errors    FormErrors
	Submitted bool
	Results   []SearchResult
}

// HandlerConfig wires the dependencies of Handlers. Store is required; the
// rest fall back to in-process defaults.
type HandlerConfig struct {
	Store       Store
	Mailer      Mailer
	Cache       Cache
	Feed        *Feed
	Sessions    *scs.SessionManager
	Renderer    *Renderer
	RateLimiter *RateLimiter
	Logger      *slog.Logger
	Location    *time.Location

	// BaseURL is the scheme and host used for absolute links. When empty
	// the request's own scheme and host are used.
	BaseURL         string
	MailFrom        string
	SiteTitle       string
	SiteDescription string
}

type Handlers struct {
	store       Store
	searcher    *Searcher
	recommender *Recommender
	paginator   Paginator
	feed        *Feed
	mailer      Mailer
	sessions    *scs.SessionManager
	renderer    *Renderer
	limiter     *RateLimiter
	logger      *slog.Logger
	loc         *time.Location
	baseURL     string
	mailFrom    string
	site        siteData
}

func NewHandlers(cfg HandlerConfig) (*Handlers, error) {
	if cfg.Store == nil {
		return nil, errors.New("blog: store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	renderer := cfg.Renderer
	if renderer == nil {
		var err error
		if renderer, err = NewRenderer(); err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
	}
	mailer := cfg.Mailer
	if mailer == nil {
		mailer = LogMailer{Logger: logger}
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = scs.New()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	feed := cfg.Feed
	if feed == nil {
		feed = NewFeed(cfg.Store, cfg.Cache, logger, cfg.SiteTitle, cfg.SiteDescription)
	}
	from := cfg.MailFrom
	if from == "" {
		from = "webmaster@localhost"
	}

	return &Handlers{
		store:       cfg.Store,
		searcher:    NewSearcher(cfg.Store),
		recommender: NewRecommender(cfg.Store),
		paginator:   NewPaginator(PostsPerPage),
		feed:        feed,
		mailer:      mailer,
		sessions:    sessions,
		renderer:    renderer,
		limiter:     cfg.RateLimiter,
		logger:      logger,
		loc:         loc,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		mailFrom:    from,
		site: siteData{
			Title:       cfg.SiteTitle,
			Description: cfg.SiteDescription,
			BasePath:    BasePath,
		},
	}, nil
}

// Routes returns the full HTTP handler including middleware.
func (h *Handlers) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", h.home).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet, http.MethodHead)

	b := r.PathPrefix(BasePath).Subrouter()
	b.HandleFunc("/", h.postList).Methods(http.MethodGet, http.MethodHead)
	b.HandleFunc("/tag/{tag_slug}/", h.postList).Methods(http.MethodGet, http.MethodHead)
	b.HandleFunc("/feed/", h.postFeed).Methods(http.MethodGet, http.MethodHead)
	b.HandleFunc("/search/", h.postSearch).Methods(http.MethodGet, http.MethodHead)
	b.HandleFunc("/{year:[0-9]+}/{month:[0-9]+}/{day:[0-9]+}/{post}/", h.postDetail).
		Methods(http.MethodGet, http.MethodHead)
	b.HandleFunc("/{post_id:[0-9]+}/share/", h.postShare).Methods(http.MethodGet, http.MethodPost)
	b.HandleFunc("/{post_id:[0-9]+}/comment/", h.postComment).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		h.notFound(w)
	})

	var handler http.Handler = r
	if h.limiter != nil {
		handler = h.limiter.Limit(handler)
	}
	handler = h.sessions.LoadAndSave(handler)
	handler = h.recoverPanic(handler)
	return h.logRequests(requestID(handler))
}

func (h *Handlers) home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, BasePath+"/", http.StatusFound)
}

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "health check failed", slog.Any("error", err))
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// postList handles the paginated list of published posts, optionally
// narrowed to one tag.
func (h *Handlers) postList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := PostFilter{Status: StatusPublished}
	data := ListViewData{Site: h.site}

	if slug := mux.Vars(r)["tag_slug"]; slug != "" {
		tag, err := h.store.GetTagBySlug(ctx, slug)
		if err != nil {
			h.storeError(w, r, err)
			return
		}
		data.Tag = tag
		filter.TagID = tag.ID
	}

	total, err := h.store.CountPosts(ctx, filter)
	if err != nil {
		h.serverError(w, r, fmt.Errorf("count posts: %w", err))
		return
	}
	data.Page = h.paginator.Page(total, r.URL.Query().Get("page"))

	data.Posts, err = h.store.ListPosts(ctx, filter, data.Page.PerPage, data.Page.Offset())
	if err != nil {
		h.serverError(w, r, fmt.Errorf("list posts: %w", err))
		return
	}
	h.render(w, r, http.StatusOK, "list.html", data)
}

// postDetail shows one published post addressed by its publish date and slug.
func (h *Handlers) postDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	year, yerr := strconv.Atoi(vars["year"])
	month, merr := strconv.Atoi(vars["month"])
	day, derr := strconv.Atoi(vars["day"])
	// Publish dates never leave four-digit years.
	if yerr != nil || merr != nil || derr != nil || year < 1 || year > 9999 {
		h.notFound(w)
		return
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, h.loc)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		h.notFound(w)
		return
	}
	start, end := DayBounds(date, h.loc)

	post, err := h.store.GetPostByDate(ctx, vars["post"], start, end, StatusPublished)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	comments, err := h.store.ListComments(ctx, post.ID, true)
	if err != nil {
		h.serverError(w, r, fmt.Errorf("list comments: %w", err))
		return
	}
	similar, err := h.recommender.Similar(ctx, post)
	if err != nil {
		h.serverError(w, r, fmt.Errorf("similar posts: %w", err))
		return
	}

	h.render(w, r, http.StatusOK, "detail.html", DetailViewData{
		Site:     h.site,
		Post:     post,
		Comments: comments,
		Form: CommentForm{
			Name:  h.sessions.GetString(ctx, sessionCommentName),
			Email: h.sessions.GetString(ctx, sessionCommentEmail),
		},
		Similar: similar,
	})
}

// postShare shows the share form and, on a valid submission, emails a link
// to the post.
func (h *Handlers) postShare(w http.ResponseWriter, r *http.Request) {
	post, ok := h.publishedPost(w, r)
	if !ok {
		return
	}
	data := ShareViewData{Site: h.site, Post: post}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			h.clientError(w, http.StatusBadRequest)
			return
		}
		data.Form = ParseEmailPostForm(r.PostForm)
		data.Errors = data.Form.Validate()
		if len(data.Errors) == 0 {
			postURL := h.absoluteURL(r, post.AbsoluteURL())
			msg := ShareMessage(data.Form, post, postURL, h.mailFrom)
			if err := h.mailer.Send(r.Context(), msg); err != nil {
				h.serverError(w, r, fmt.Errorf("share post %d: %w", post.ID, err))
				return
			}
			h.logger.InfoContext(r.Context(), "post shared",
				slog.Int64("post_id", post.ID),
				slog.String("to", data.Form.To),
			)
			data.Sent = true
		}
	}
	h.render(w, r, http.StatusOK, "share.html", data)
}

// postComment stores a comment for a published post. Invalid forms are
// re-rendered with their errors and nothing is stored.
func (h *Handlers) postComment(w http.ResponseWriter, r *http.Request) {
	post, ok := h.publishedPost(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.clientError(w, http.StatusBadRequest)
		return
	}
	data := CommentViewData{Site: h.site, Post: post}
	data.Form = ParseCommentForm(r.PostForm)
	data.Errors = data.Form.Validate()

	if len(data.Errors) == 0 {
		comment := data.Form.Comment(post.ID)
		if err := h.store.CreateComment(r.Context(), comment); err != nil {
			h.serverError(w, r, fmt.Errorf("create comment: %w", err))
			return
		}
		h.sessions.Put(r.Context(), sessionCommentName, comment.Name)
		h.sessions.Put(r.Context(), sessionCommentEmail, comment.Email)
		data.Comment = comment
	}
	h.render(w, r, http.StatusOK, "comment.html", data)
}

func (h *Handlers) postSearch(w http.ResponseWriter, r *http.Request) {
	data := SearchViewData{Site: h.site}
	q := r.URL.Query()
	if q.Has("query") {
		data.Form = SearchForm{Query: strings.TrimSpace(q.Get("query"))}
		data.Errors = data.Form.Validate()
		if len(data.Errors) == 0 {
			results, err := h.searcher.Search(r.Context(), data.Form.Query)
			if err != nil {
				h.serverError(w, r, fmt.Errorf("search %q: %w", data.Form.Query, err))
				return
			}
			data.Submitted = true
			data.Results = results
		}
	}
	h.render(w, r, http.StatusOK, "search.html", data)
}

func (h *Handlers) postFeed(w http.ResponseWriter, r *http.Request) {
	out, err := h.feed.XML(r.Context(), h.absoluteURL(r, ""))
	if err != nil {
		h.serverError(w, r, fmt.Errorf("build feed: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write(out)
}

// publishedPost loads the published post named by the post_id route
// variable, answering 404 itself when there is none.
func (h *Handlers) publishedPost(w http.ResponseWriter, r *http.Request) (*Post, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["post_id"], 10, 64)
	if err != nil {
		h.notFound(w)
		return nil, false
	}
	post, err := h.store.GetPost(r.Context(), id, StatusPublished)
	if err != nil {
		h.storeError(w, r, err)
		return nil, false
	}
	return post, true
}

func (h *Handlers) absoluteURL(r *http.Request, path string) string {
	if h.baseURL != "" {
		return h.baseURL + path
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	if err := h.renderer.Render(w, status, page, data); err != nil {
		h.serverError(w, r, fmt.Errorf("render %s: %w", page, err))
	}
}

func (h *Handlers) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		h.notFound(w)
		return
	}
	h.serverError(w, r, err)
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", RequestID(r.Context())),
		slog.Any("error", err),
	)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (h *Handlers) clientError(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}

func (h *Handlers) notFound(w http.ResponseWriter) {
	h.clientError(w, http.StatusNotFound)
}
