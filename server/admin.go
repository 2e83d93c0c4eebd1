package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rexlx/volblog/blog"
	"github.com/rexlx/volblog/config"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or revert the database schema",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := "up"
		if len(args) == 1 {
			direction = args[0]
		}
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		url := cfg.GetString(config.KeyDBURL)
		if url == "" {
			return errors.New("no database configured: set Database.URL")
		}
		if err := blog.RunMigrations(url, direction); err != nil {
			return err
		}
		logger.Info("migrations applied", "direction", direction)
		return nil
	},
}

var authorCmd = &cobra.Command{
	Use:   "author",
	Short: "Manage post authors",
}

var (
	authorUsername string
	authorEmail    string
	authorPassword string
)

var authorCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an author",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, db *blog.Database) error {
			a, err := blog.NewAuthor(authorUsername, authorEmail)
			if err != nil {
				return err
			}
			if authorPassword != "" {
				if err := a.SetPassword(authorPassword); err != nil {
					return err
				}
			}
			if err := db.CreateAuthor(ctx, a); err != nil {
				return err
			}
			a.Sanitize()
			return printJSON(a)
		})
	},
}

var authorVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check an author's password",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, db *blog.Database) error {
			a, err := db.GetAuthorByUsername(ctx, authorUsername)
			if err != nil {
				return err
			}
			ok, err := a.PasswordMatches(authorPassword)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("password does not match")
			}
			fmt.Println("password ok")
			return nil
		})
	},
}

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Manage posts",
}

var (
	postAuthor    string
	postTitle     string
	postSlug      string
	postBody      string
	postBodyFile  string
	postTags      []string
	postPublish   string
	postStatus    string
	postScheduled bool
)

var postCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a post",
	Long: `Create a post. The body is Markdown, given inline with --body or read
from --body-file ("-" reads stdin).

Examples:
  volblog post create --author admin --title "Hello" --body "First post" --status published
  volblog post create --author admin --title "Later" --body-file later.md --publish 2026-12-01T09:00:00Z --scheduled`,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := blog.ParseStatus(postStatus)
		if err != nil {
			return err
		}
		body, err := readBody(postBody, postBodyFile)
		if err != nil {
			return err
		}
		publish := time.Now()
		if postPublish != "" {
			if publish, err = time.Parse(time.RFC3339, postPublish); err != nil {
				return fmt.Errorf("--publish: %w", err)
			}
		}
		slug := postSlug
		if slug == "" {
			slug = blog.Slugify(postTitle)
		}
		if slug == "" {
			return errors.New("post needs a title or --slug that yields a slug")
		}
		if postScheduled && status == blog.StatusPublished {
			return errors.New("--scheduled only applies to draft posts")
		}

		return withDatabase(cmd.Context(), func(ctx context.Context, db *blog.Database) error {
			author, err := db.GetAuthorByUsername(ctx, postAuthor)
			if err != nil {
				return fmt.Errorf("author %q: %w", postAuthor, err)
			}
			p := &blog.Post{
				Title:     strings.TrimSpace(postTitle),
				Slug:      slug,
				AuthorID:  author.ID,
				Body:      body,
				Publish:   publish,
				Status:    status,
				Scheduled: postScheduled,
			}
			if err := db.CreatePost(ctx, p, postTags); err != nil {
				return err
			}
			if p.Published() {
				invalidateFeed(ctx, db)
			}
			fmt.Printf("created post %d: %s\n", p.ID, p.AbsoluteURL())
			return nil
		})
	},
}

var postPublishCmd = &cobra.Command{
	Use:   "publish <id>",
	Short: "Publish a draft post now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid post id %q", args[0])
		}
		return withDatabase(cmd.Context(), func(ctx context.Context, db *blog.Database) error {
			if err := db.PublishPost(ctx, id); err != nil {
				return err
			}
			invalidateFeed(ctx, db)
			fmt.Printf("published post %d\n", id)
			return nil
		})
	},
}

var postDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a post and its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid post id %q", args[0])
		}
		return withDatabase(cmd.Context(), func(ctx context.Context, db *blog.Database) error {
			if err := db.DeletePost(ctx, id); err != nil {
				return err
			}
			invalidateFeed(ctx, db)
			fmt.Printf("deleted post %d\n", id)
			return nil
		})
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Moderate comments",
}

var commentActive bool

var commentModerateCmd = &cobra.Command{
	Use:   "moderate <id>",
	Short: "Show or hide a comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid comment id %q", args[0])
		}
		return withDatabase(cmd.Context(), func(ctx context.Context, db *blog.Database) error {
			if err := db.SetCommentActive(ctx, id, commentActive); err != nil {
				return err
			}
			fmt.Printf("comment %d active=%t\n", id, commentActive)
			return nil
		})
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Inspect tags",
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, db *blog.Database) error {
			tags, err := db.ListTags(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSLUG")
			for _, t := range tags {
				fmt.Fprintf(w, "%d\t%s\t%s\n", t.ID, t.Name, t.Slug)
			}
			return w.Flush()
		})
	},
}

func init() {
	authorCreateCmd.Flags().StringVar(&authorUsername, "username", "", "Author username")
	authorCreateCmd.Flags().StringVar(&authorEmail, "email", "", "Author email")
	authorCreateCmd.Flags().StringVar(&authorPassword, "password", "", "Author password")
	authorCreateCmd.MarkFlagRequired("username")
	authorVerifyCmd.Flags().StringVar(&authorUsername, "username", "", "Author username")
	authorVerifyCmd.Flags().StringVar(&authorPassword, "password", "", "Password to check")
	authorVerifyCmd.MarkFlagRequired("username")
	authorCmd.AddCommand(authorCreateCmd, authorVerifyCmd)

	postCreateCmd.Flags().StringVar(&postAuthor, "author", "", "Author username")
	postCreateCmd.Flags().StringVar(&postTitle, "title", "", "Post title")
	postCreateCmd.Flags().StringVar(&postSlug, "slug", "", "URL slug (default: derived from the title)")
	postCreateCmd.Flags().StringVar(&postBody, "body", "", "Markdown body")
	postCreateCmd.Flags().StringVar(&postBodyFile, "body-file", "", "Read the Markdown body from a file")
	postCreateCmd.Flags().StringSliceVar(&postTags, "tags", nil, "Comma separated tag names")
	postCreateCmd.Flags().StringVar(&postPublish, "publish", "", "Publish time, RFC 3339 (default: now)")
	postCreateCmd.Flags().StringVar(&postStatus, "status", "draft", "draft or published")
	postCreateCmd.Flags().BoolVar(&postScheduled, "scheduled", false, "Publish automatically once --publish has passed")
	postCreateCmd.MarkFlagRequired("author")
	postCreateCmd.MarkFlagRequired("title")
	postCreateCmd.MarkFlagsMutuallyExclusive("body", "body-file")
	postCmd.AddCommand(postCreateCmd, postPublishCmd, postDeleteCmd)

	commentModerateCmd.Flags().BoolVar(&commentActive, "active", false, "Whether the comment is shown")
	commentCmd.AddCommand(commentModerateCmd)

	tagCmd.AddCommand(tagListCmd)

	rootCmd.AddCommand(migrateCmd, authorCmd, postCmd, commentCmd, tagCmd)
}

func withDatabase(ctx context.Context, fn func(context.Context, *blog.Database) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}

// invalidateFeed drops the cached feed so the next request rebuilds it.
func invalidateFeed(ctx context.Context, db *blog.Database) {
	cfg, logger, err := setup()
	if err != nil {
		return
	}
	cache, closeCache := openCache(ctx, cfg, logger)
	defer closeCache()
	feed := blog.NewFeed(db, cache, logger, "", "")
	if err := feed.Invalidate(ctx); err != nil {
		logger.Warn("feed cache invalidation failed", "error", err)
	}
}

func readBody(inline, file string) (string, error) {
	switch file {
	case "":
		return inline, nil
	case "-":
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	default:
		b, err := os.ReadFile(file)
		return string(b), err
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
