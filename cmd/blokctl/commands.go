package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/damoang/blok-client/internal/admin"
	"github.com/damoang/blok-client/internal/comments"
	"github.com/damoang/blok-client/internal/common"
	"github.com/damoang/blok-client/internal/dantry"
	"github.com/damoang/blok-client/internal/domain"
	"github.com/damoang/blok-client/internal/feed"
	"github.com/damoang/blok-client/internal/pagination"
	"github.com/damoang/blok-client/internal/viewtrack"
	pkglogger "github.com/damoang/blok-client/pkg/logger"
)

type command struct {
	summary string
	offline bool // skips session restore
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":           {summary: "sign in and store the session token", offline: true, run: cmdLogin},
	"logout":          {summary: "forget the stored session token", offline: true, run: cmdLogout},
	"forgot-password": {summary: "reset a password and print the temporary one", offline: true, run: cmdForgotPassword},
	"whoami":          {summary: "show the signed-in user", run: cmdWhoami},
	"feed":            {summary: "list posts (-tab posts|mine|liked|saved|commented|top)", run: cmdFeed},
	"post":            {summary: "show a post", run: cmdPost},
	"publish":         {summary: "create a post", run: cmdPublish},
	"delete":          {summary: "delete one of your posts", run: cmdDelete},
	"like":            {summary: "toggle like on a post", run: cmdLike},
	"save":            {summary: "toggle save on a post", run: cmdSave},
	"views":           {summary: "record views for posts", run: cmdViews},
	"comments":        {summary: "show or change a comment thread", run: cmdComments},
	"admin-users":     {summary: "list or delete users (admin)", run: cmdAdminUsers},
	"admin-posts":     {summary: "list posts (admin)", run: cmdAdminPosts},
	"categories":      {summary: "list or create categories", run: cmdCategories},
	"tags":            {summary: "list tags", run: cmdTags},
	"errors":          {summary: "show locally stored error reports", offline: true, run: cmdErrors},
	"serve-fake":      {summary: "run the in-memory backend with /metrics", offline: true, run: cmdServeFake},
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login", "[-admin] <username> <password>")
	asAdmin := fs.Bool("admin", false, "use the admin sign-in endpoint")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return flag.ErrHelp
	}
	login := a.auth.Login
	if *asAdmin {
		login = a.auth.AdminLogin
	}
	u, err := login(ctx, fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	a.printf("signed in as %s (%s)\n", u.Username, u.Role)
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.printf("signed out\n")
	return nil
}

func cmdForgotPassword(ctx context.Context, a *app, args []string) error {
	fs := a.flags("forgot-password", "<email>")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return flag.ErrHelp
	}
	password, err := a.auth.ForgotPassword(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	a.printf("temporary password: %s\nsign in and change it\n", password)
	return nil
}

func cmdWhoami(_ context.Context, a *app, _ []string) error {
	u := a.session.User()
	if u == nil {
		a.printf("not signed in\n")
		return nil
	}
	a.printf("%s <%s> %s\n", u.Username, u.Email, u.Role)
	return nil
}

func cmdFeed(ctx context.Context, a *app, args []string) error {
	fs := a.flags("feed", "[-tab name]")
	tab := fs.String("tab", "posts", "posts, mine, liked, saved, commented or top")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		posts []domain.Post
		err   error
	)
	switch *tab {
	case "posts":
		err = a.feed.LoadFeed(ctx)
		posts = a.feed.CurrentPosts(feed.TabPosts)
	case "mine":
		err = a.feed.LoadMine(ctx)
		posts = a.feed.CurrentPosts(feed.TabPosts)
	case "liked":
		err = a.feed.LoadLiked(ctx)
		posts = a.feed.CurrentPosts(feed.TabLikes)
	case "saved":
		err = a.feed.LoadSaved(ctx)
		posts = a.feed.CurrentPosts(feed.TabSaved)
	case "commented":
		err = a.feed.LoadCommented(ctx)
		posts = a.feed.CurrentPosts(feed.TabComments)
	case "top":
		posts, err = a.feed.LoadTopLiked(ctx)
	default:
		return fmt.Errorf("unknown tab %q", *tab)
	}
	if err != nil {
		return err
	}
	a.printPosts(posts)
	return nil
}

func cmdPost(ctx context.Context, a *app, args []string) error {
	id, err := singleID(a, "post", args)
	if err != nil {
		return err
	}
	p, err := a.feed.LoadPost(ctx, id)
	if err != nil {
		return err
	}
	a.printf("#%s %s\n", p.ID, p.Title)
	a.printf("by %s in %s, %s\n", p.Author.Username, p.Category.Name, p.CreatedAt.Format("2006-01-02 15:04"))
	if tags := p.TagNames(); len(tags) > 0 {
		a.printf("tags: %s\n", strings.Join(tags, ", "))
	}
	a.printf("%d likes, %d comments, %d views%s\n\n", p.LikeCount, p.CommentCount, p.ViewsCount, marks(*p))
	a.printf("%s\n", p.Content)
	if links := common.Links(p.Content); len(links) > 0 {
		a.printf("\nlinks:\n  %s\n", strings.Join(links, "\n  "))
	}
	return nil
}

func cmdPublish(ctx context.Context, a *app, args []string) error {
	fs := a.flags("publish", "-title text -content text [-summary text] [-tags a,b]")
	title := fs.String("title", "", "post title")
	content := fs.String("content", "", "post body")
	summary := fs.String("summary", "", "short summary")
	tags := fs.String("tags", "", "comma separated tag names")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req := domain.CreatePostRequest{Title: *title, Content: *content, Summary: *summary, TagNames: splitList(*tags)}
	p, err := a.feed.CreatePost(ctx, req)
	if err != nil {
		return err
	}
	a.printf("created post #%s\n", p.ID)
	return nil
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	id, err := singleID(a, "delete", args)
	if err != nil {
		return err
	}
	if err := a.feed.DeletePost(ctx, id); err != nil {
		return err
	}
	a.printf("deleted post #%s\n", id)
	return nil
}

func cmdLike(ctx context.Context, a *app, args []string) error {
	id, err := singleID(a, "like", args)
	if err != nil {
		return err
	}
	p, err := a.feed.ToggleLike(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		a.printf("toggled like on #%s\n", id)
		return nil
	}
	state := "unliked"
	if p.IsLiked {
		state = "liked"
	}
	a.printf("%s #%s (%d likes)\n", state, p.ID, p.LikeCount)
	return nil
}

func cmdSave(ctx context.Context, a *app, args []string) error {
	id, err := singleID(a, "save", args)
	if err != nil {
		return err
	}
	p, err := a.feed.ToggleSave(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		a.printf("toggled save on #%s\n", id)
		return nil
	}
	state := "removed from saved"
	if p.IsSaved {
		state = "saved"
	}
	a.printf("%s #%s\n", state, p.ID)
	return nil
}

// cmdViews 명령행의 게시글을 모두 완전히 보인 것으로 처리
func cmdViews(ctx context.Context, a *app, args []string) error {
	fs := a.flags("views", "<postId>...")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}
	tracker := viewtrack.New(viewtrack.NewAPISender(a.api), a.session, viewtrack.Options{
		Debounce:  a.cfg.Views.Debounce,
		Threshold: a.cfg.Views.Threshold,
		Bus:       a.bus,
	}, pkglogger.WithComponent("viewtrack"))

	queued := 0
	for _, id := range fs.Args() {
		if tracker.Observe(id, 1) {
			queued++
		}
	}
	tracker.Close(ctx)
	a.printf("%d posts observed\n", queued)
	return nil
}

func cmdComments(ctx context.Context, a *app, args []string) error {
	fs := a.flags("comments", "[-add text [-parent id]] [-like id] [-delete id] <postId>")
	add := fs.String("add", "", "new comment text")
	parent := fs.String("parent", "", "reply to this comment")
	like := fs.String("like", "", "toggle like on this comment")
	del := fs.String("delete", "", "delete this comment and its replies")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return flag.ErrHelp
	}

	thread := comments.NewThread(a.api, a.session, a.bus, fs.Arg(0), pkglogger.WithComponent("comments"))
	if err := thread.Load(ctx); err != nil {
		return err
	}
	switch {
	case *add != "":
		c, err := thread.Create(ctx, *add, *parent)
		if err != nil {
			return err
		}
		a.printf("added comment #%s\n", c.ID)
	case *like != "":
		c, err := thread.ToggleLike(ctx, *like)
		if err != nil {
			return err
		}
		a.printf("comment #%s: %d likes\n", c.ID, c.LikeCount)
	case *del != "":
		if err := thread.Delete(ctx, *del); err != nil {
			return err
		}
		a.printf("deleted comment #%s\n", *del)
	}
	a.printComments(thread.Snapshot(), 0)
	return nil
}

func cmdAdminUsers(ctx context.Context, a *app, args []string) error {
	fs := a.flags("admin-users", "[-q text] [-page n] [-size n] [-delete id]")
	q := fs.String("q", "", "search username or email")
	page := fs.Int("page", 0, "zero-based page")
	size := fs.Int("size", a.cfg.Admin.PageSize, "page size")
	del := fs.Int64("delete", 0, "delete this user id after listing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	users := admin.NewUsers(a.api, a.session, *size, pkglogger.WithComponent("admin"))
	if err := loadPage(ctx, users.Pager, *q, *page); err != nil {
		return err
	}
	if *del != 0 {
		if err := users.DeleteUser(ctx, *del); err != nil {
			return err
		}
		a.printf("deleted user #%d\n", *del)
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tONLINE\tJOINED")
	for _, u := range users.Items() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n", u.ID, u.Username, u.Email, u.Role, u.IsOnline, u.CreatedAt.Format("2006-01-02"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	a.printPageInfo(users.Info())
	return nil
}

func cmdAdminPosts(ctx context.Context, a *app, args []string) error {
	fs := a.flags("admin-posts", "[-q text] [-page n] [-size n]")
	q := fs.String("q", "", "search title")
	page := fs.Int("page", 0, "zero-based page")
	size := fs.Int("size", a.cfg.Admin.PageSize, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	posts := admin.NewPosts(a.api, *size, pkglogger.WithComponent("admin"))
	if err := loadPage(ctx, posts.Pager, *q, *page); err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tPUBLISHED\tCREATED")
	for _, p := range posts.Items() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n", p.ID, p.Title, p.AuthorUsername, p.Published, p.CreatedAt.Format("2006-01-02"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	a.printPageInfo(posts.Info())
	return nil
}

func cmdCategories(ctx context.Context, a *app, args []string) error {
	fs := a.flags("categories", "[-add name [-description text]]")
	add := fs.String("add", "", "create a category (admin)")
	desc := fs.String("description", "", "description of the new category")
	if err := fs.Parse(args); err != nil {
		return err
	}

	catalog := admin.NewCatalog(a.api, a.session)
	if _, err := catalog.LoadCategories(ctx); err != nil {
		return err
	}
	if *add != "" {
		if _, err := catalog.CreateCategory(ctx, domain.CreateCategoryRequest{Name: *add, Description: *desc}); err != nil {
			return err
		}
	}
	for _, c := range catalog.Categories() {
		a.printf("%d\t%s\t%s\n", c.ID, c.Name, c.Description)
	}
	return nil
}

func cmdTags(ctx context.Context, a *app, _ []string) error {
	tags, err := admin.NewCatalog(a.api, a.session).LoadTags(ctx)
	if err != nil {
		return err
	}
	for _, t := range tags {
		a.printf("%d\t%s\n", t.ID, t.Name)
	}
	return nil
}

func cmdErrors(ctx context.Context, a *app, args []string) error {
	fs := a.flags("errors", "[-clear] [-json] [-remote n]")
	wipe := fs.Bool("clear", false, "delete stored reports")
	asJSON := fs.Bool("json", false, "print reports as JSON")
	remote := fs.Int("remote", 0, "read the newest n reports from ClickHouse instead")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *wipe {
		if err := a.reporter.Clear(ctx); err != nil {
			return err
		}
		a.printf("error reports cleared\n")
		return nil
	}

	var reports []dantry.Report
	switch {
	case *remote > 0:
		if a.remote == nil {
			return errors.New("ClickHouse is not configured")
		}
		list, err := a.remote.Recent(ctx, *remote)
		if err != nil {
			return err
		}
		reports = list
	case a.local != nil:
		list, err := a.local.List(ctx)
		if err != nil {
			return err
		}
		reports = list
	default:
		return errors.New("no report database configured (set BLOK_REPORT_DB)")
	}

	if *asJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return err
		}
		a.printf("%s\n", data)
		return nil
	}
	if len(reports) == 0 {
		a.printf("no error reports\n")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSEVERITY\tCONTEXT\tMESSAGE")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Timestamp.Format("2006-01-02 15:04:05"), r.Severity, r.Context, r.Message)
	}
	return w.Flush()
}

// ---- helpers ----

func loadPage[T any](ctx context.Context, p *pagination.Pager[T], q string, page int) error {
	if q != "" {
		if err := p.Search(ctx, q); err != nil {
			return err
		}
		if page == 0 {
			return nil
		}
	}
	return p.SetPage(ctx, page)
}

func singleID(a *app, name string, args []string) (string, error) {
	fs := a.flags(name, "<id>")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return "", flag.ErrHelp
	}
	return fs.Arg(0), nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func marks(p domain.Post) string {
	var marks []string
	if p.IsLiked {
		marks = append(marks, "liked")
	}
	if p.IsSaved {
		marks = append(marks, "saved")
	}
	if len(marks) == 0 {
		return ""
	}
	return " [" + strings.Join(marks, ", ") + "]"
}

func (a *app) printPosts(posts []domain.Post) {
	if len(posts) == 0 {
		a.printf("no posts\n")
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tLIKES\tCOMMENTS\tVIEWS\t")
	for _, p := range posts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n", p.ID, p.Title, p.Author.Username, p.LikeCount, p.CommentCount, p.ViewsCount, strings.TrimSpace(marks(p)))
	}
	_ = w.Flush()
}

func (a *app) printComments(list []domain.Comment, depth int) {
	if depth == 0 && len(list) == 0 {
		a.printf("no comments\n")
		return
	}
	for _, c := range list {
		liked := ""
		if c.IsLiked {
			liked = ", liked"
		}
		a.printf("%s#%s %s (%d likes%s): %s\n", strings.Repeat("  ", depth), c.ID, c.Author.Username, c.LikeCount, liked, c.Content)
		a.printComments(c.Replies, depth+1)
	}
}

func (a *app) printPageInfo(info pagination.Info) {
	a.printf("page %d/%d, %d total\n", info.Page+1, max(info.TotalPages, 1), info.TotalElements)
}
