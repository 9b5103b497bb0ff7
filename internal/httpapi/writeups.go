package httpapi

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"luhack/hub/internal/auth"
	"luhack/hub/internal/markdown"
	"luhack/hub/internal/sqlcgen"
	"luhack/hub/internal/tags"
)

const snippetWidth = 300

type writeupSummary struct {
	Writeup sqlcgen.WriteupWithAuthor
	Snippet string
}

type page struct {
	Identity *auth.Identity
	Query    string
}

type indexData struct {
	page
	Heading  string
	Writeups []writeupSummary
}

type viewData struct {
	page
	Writeup  sqlcgen.WriteupWithAuthor
	Rendered template.HTML
	CanEdit  bool
}

type tagsData struct {
	page
	Tags []sqlcgen.WriteupTagCount
}

type writeupForm struct {
	Title   string
	Tags    string
	Content string
	Private bool
	Errors  []string
}

type formData struct {
	page
	Heading string
	Action  string
	Form    writeupForm
}

// visible filters out private writeups for anonymous readers.
func visible(rows []sqlcgen.WriteupWithAuthor, id *auth.Identity) []sqlcgen.WriteupWithAuthor {
	if id != nil {
		return rows
	}
	out := rows[:0:0]
	for _, w := range rows {
		if !w.Private {
			out = append(out, w)
		}
	}
	return out
}

func summarize(rows []sqlcgen.WriteupWithAuthor) []writeupSummary {
	out := make([]writeupSummary, 0, len(rows))
	for _, w := range rows {
		out = append(out, writeupSummary{
			Writeup: w,
			Snippet: markdown.Shorten(markdown.Plain(w.Content), snippetWidth),
		})
	}
	return out
}

func (h *Handler) handleWriteupsIndex(w http.ResponseWriter, r *http.Request) {
	if !h.ensureQueries(w, r) {
		return
	}

	rows, err := h.queries.ListWriteups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("listing writeups failed")
		h.renderError(w, r, http.StatusInternalServerError, "Failed to load writeups.")
		return
	}

	id := identityFrom(r.Context())
	h.render(w, http.StatusOK, "writeups_index", indexData{
		page:     page{Identity: id},
		Heading:  "Writeups",
		Writeups: summarize(visible(rows, id)),
	})
}

func (h *Handler) handleWriteupView(w http.ResponseWriter, r *http.Request) {
	if !h.ensureQueries(w, r) {
		return
	}

	id := identityFrom(r.Context())
	row, err := h.queries.GetWriteupBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil || (row.Private && id == nil) {
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			h.log.Error().Err(err).Msg("fetching writeup failed")
			h.renderError(w, r, http.StatusInternalServerError, "Failed to load writeup.")
			return
		}
		h.renderError(w, r, http.StatusNotFound, "Writeup not found.")
		return
	}

	rendered, err := markdown.Render(row.Content)
	if err != nil {
		h.log.Error().Err(err).Str("slug", row.Slug).Msg("rendering writeup failed")
		h.renderError(w, r, http.StatusInternalServerError, "Failed to render writeup.")
		return
	}

	h.render(w, http.StatusOK, "writeup_view", viewData{
		page:     page{Identity: id},
		Writeup:  row,
		Rendered: rendered,
		CanEdit:  auth.CanEdit(id, row.AuthorID),
	})
}

func (h *Handler) handleWriteupsByTag(w http.ResponseWriter, r *http.Request) {
	if !h.ensureQueries(w, r) {
		return
	}

	tag := chi.URLParam(r, "tag")
	rows, err := h.queries.ListWriteupsByTag(r.Context(), tag)
	if err != nil {
		h.log.Error().Err(err).Str("tag", tag).Msg("listing writeups by tag failed")
		h.renderError(w, r, http.StatusInternalServerError, "Failed to load writeups.")
		return
	}

	id := identityFrom(r.Context())
	h.render(w, http.StatusOK, "writeups_index", indexData{
		page:     page{Identity: id},
		Heading:  "Writeups tagged " + tag,
		Writeups: summarize(visible(rows, id)),
	})
}

func (h *Handler) handleWriteupsByUser(w http.ResponseWriter, r *http.Request) {
	if !h.ensureQueries(w, r) {
		return
	}

	username := chi.URLParam(r, "username")
	rows, err := h.queries.ListWriteupsByAuthorUsername(r.Context(), username)
	if err != nil {
		h.log.Error().Err(err).Str("username", username).Msg("listing writeups by author failed")
		h.renderError(w, r, http.StatusInternalServerError, "Failed to load writeups.")
		return
	}

	id := identityFrom(r.Context())
	h.render(w, http.StatusOK, "writeups_index", indexData{
		page:     page{Identity: id},
		Heading:  "Writeups by " + username,
		Writeups: summarize(visible(rows, id)),
	})
}

func (h *Handler) handleWriteupTags(w http.ResponseWriter, r *http.Request) {
	if !h.ensureQueries(w, r) {
		return
	}

	rows, err := h.queries.ListWriteupTags(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("listing tags failed")
		h.renderError(w, r, http.StatusInternalServerError, "Failed to load tags.")
		return
	}

	h.render(w, http.StatusOK, "tag_list", tagsData{
		page: page{Identity: identityFrom(r.Context())},
		Tags: rows,
	})
}

func (h *Handler) handleWriteupSearch(w http.ResponseWriter, r *http.Request) {
	if !h.ensureQueries(w, r) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	id := identityFrom(r.Context())

	if query == "" {
		h.render(w, http.StatusOK, "writeups_index", indexData{
			page:    page{Identity: id, Query: query},
			Heading: "Search",
		})
		return
	}

	rows, err := h.queries.SearchWriteups(r.Context(), sqlcgen.SearchWriteupsParams{Query: query, Limit: 50})
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("writeup search failed")
		h.renderError(w, r, http.StatusInternalServerError, "Search failed.")
		return
	}

	summaries := make([]writeupSummary, 0, len(rows))
	for _, row := range rows {
		if row.Private && id == nil {
			continue
		}
		summaries = append(summaries, writeupSummary{
			Writeup: row.WriteupWithAuthor,
			Snippet: markdown.Shorten(markdown.Plain(row.Headline), snippetWidth),
		})
	}

	h.render(w, http.StatusOK, "writeups_index", indexData{
		page:     page{Identity: id, Query: query},
		Heading:  "Search results for " + strconv.Quote(query),
		Writeups: summaries,
	})
}

func (h *Handler) handleWriteupNewForm(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if id == nil {
		h.renderError(w, r, http.StatusUnauthorized, "You need to log in to post writeups. Ask the bot for a login link.")
		return
	}

	h.render(w, http.StatusOK, "writeup_form", formData{
		page:    page{Identity: id},
		Heading: "New writeup",
		Action:  "/writeups/new",
	})
}

func (h *Handler) handleWriteupCreate(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if id == nil {
		h.renderError(w, r, http.StatusUnauthorized, "You need to log in to post writeups.")
		return
	}
	if !h.ensureQueries(w, r) {
		return
	}

	form := parseWriteupForm(r)
	form.validate()

	if len(form.Errors) == 0 {
		if err := h.checkDuplicateTitle(r, form.Title, 0); err != nil {
			if errors.Is(err, errDuplicateTitle) {
				form.Errors = append(form.Errors, "A writeup with the title '"+form.Title+"' already exists.")
			} else {
				h.renderError(w, r, http.StatusInternalServerError, "Failed to save writeup.")
				return
			}
		}
	}

	if len(form.Errors) > 0 {
		h.render(w, http.StatusUnprocessableEntity, "writeup_form", formData{
			page:    page{Identity: id},
			Heading: "New writeup",
			Action:  "/writeups/new",
			Form:    form,
		})
		return
	}

	created, err := h.queries.CreateWriteup(r.Context(), sqlcgen.CreateWriteupParams{
		AuthorID: id.DiscordID,
		Title:    form.Title,
		Slug:     slug.Make(form.Title),
		Tags:     tags.ParseList(form.Tags),
		Content:  form.Content,
		Private:  form.Private,
	})
	if err != nil {
		if isUniqueViolation(err) {
			form.Errors = append(form.Errors, "A writeup with that title already exists.")
			h.render(w, http.StatusUnprocessableEntity, "writeup_form", formData{
				page:    page{Identity: id},
				Heading: "New writeup",
				Action:  "/writeups/new",
				Form:    form,
			})
			return
		}
		h.log.Error().Err(err).Msg("creating writeup failed")
		h.renderError(w, r, http.StatusInternalServerError, "Failed to save writeup.")
		return
	}

	h.log.Info().Str("title", created.Title).Str("author", id.Username).Msg("writeup created")
	http.Redirect(w, r, "/writeups/view/"+created.Slug, http.StatusFound)
}

func (h *Handler) handleWriteupEditForm(w http.ResponseWriter, r *http.Request) {
	row, id, ok := h.loadEditable(w, r)
	if !ok {
		return
	}

	h.render(w, http.StatusOK, "writeup_form", formData{
		page:    page{Identity: id},
		Heading: "Edit writeup",
		Action:  "/writeups/edit/" + strconv.Itoa(int(row.ID)),
		Form:    writeupForm{
			Title:   row.Title,
			Tags:    strings.Join(row.Tags, ", "),
			Content: row.Content,
			Private: row.Private,
		},
	})
}

func (h *Handler) handleWriteupUpdate(w http.ResponseWriter, r *http.Request) {
	row, id, ok := h.loadEditable(w, r)
	if !ok {
		return
	}

	form := parseWriteupForm(r)
	form.validate()

	if len(form.Errors) == 0 {
		if err := h.checkDuplicateTitle(r, form.Title, row.ID); err != nil {
			if errors.Is(err, errDuplicateTitle) {
				form.Errors = append(form.Errors, "A writeup with the title '"+form.Title+"' already exists.")
			} else {
				h.renderError(w, r, http.StatusInternalServerError, "Failed to save writeup.")
				return
			}
		}
	}

	if len(form.Errors) > 0 {
		h.render(w, http.StatusUnprocessableEntity, "writeup_form", formData{
			page:    page{Identity: id},
			Heading: "Edit writeup",
			Action:  "/writeups/edit/" + strconv.Itoa(int(row.ID)),
			Form:    form,
		})
		return
	}

	updated, err := h.queries.UpdateWriteup(r.Context(), sqlcgen.UpdateWriteupParams{
		ID:      row.ID,
		Title:   form.Title,
		Slug:    slug.Make(form.Title),
		Tags:    tags.ParseList(form.Tags),
		Content: form.Content,
		Private: form.Private,
	})
	if err != nil {
		h.log.Error().Err(err).Int32("id", row.ID).Msg("updating writeup failed")
		h.renderError(w, r, http.StatusInternalServerError, "Failed to save writeup.")
		return
	}

	h.log.Info().Str("title", updated.Title).Str("editor", id.Username).Msg("writeup edited")
	http.Redirect(w, r, "/writeups/view/"+updated.Slug, http.StatusFound)
}

func (h *Handler) handleWriteupDelete(w http.ResponseWriter, r *http.Request) {
	row, id, ok := h.loadEditable(w, r)
	if !ok {
		return
	}

	if _, err := h.queries.DeleteWriteup(r.Context(), row.ID); err != nil {
		h.log.Error().Err(err).Int32("id", row.ID).Msg("deleting writeup failed")
		h.renderError(w, r, http.StatusInternalServerError, "Failed to delete writeup.")
		return
	}

	h.log.Info().Str("title", row.Title).Str("deleter", id.Username).Msg("writeup deleted")
	http.Redirect(w, r, "/writeups/", http.StatusFound)
}

// loadEditable fetches the writeup named in the URL and enforces the
// author-or-admin rule shared by edit, update, and delete.
func (h *Handler) loadEditable(w http.ResponseWriter, r *http.Request) (sqlcgen.WriteupWithAuthor, *auth.Identity, bool) {
	id := identityFrom(r.Context())
	if id == nil {
		h.renderError(w, r, http.StatusUnauthorized, "You need to log in to edit writeups.")
		return sqlcgen.WriteupWithAuthor{}, nil, false
	}
	if !h.ensureQueries(w, r) {
		return sqlcgen.WriteupWithAuthor{}, nil, false
	}

	rawID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		h.renderError(w, r, http.StatusNotFound, "Writeup not found.")
		return sqlcgen.WriteupWithAuthor{}, nil, false
	}

	row, err := h.queries.GetWriteup(r.Context(), int32(rawID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.renderError(w, r, http.StatusNotFound, "Writeup not found.")
		} else {
			h.log.Error().Err(err).Int64("id", rawID).Msg("fetching writeup failed")
			h.renderError(w, r, http.StatusInternalServerError, "Failed to load writeup.")
		}
		return sqlcgen.WriteupWithAuthor{}, nil, false
	}

	if !auth.CanEdit(id, row.AuthorID) {
		h.renderError(w, r, http.StatusForbidden, "Only the author or an admin can do that.")
		return sqlcgen.WriteupWithAuthor{}, nil, false
	}
	return row, id, true
}

var errDuplicateTitle = errors.New("duplicate title")

func (h *Handler) checkDuplicateTitle(r *http.Request, title string, excludeID int32) error {
	existing, err := h.queries.GetWriteupByTitle(r.Context(), title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		h.log.Error().Err(err).Msg("duplicate title check failed")
		return err
	}
	if existing.ID == excludeID {
		return nil
	}
	return errDuplicateTitle
}

func parseWriteupForm(r *http.Request) writeupForm {
	_ = r.ParseForm()
	return writeupForm{
		Title:   strings.TrimSpace(r.FormValue("title")),
		Tags:    r.FormValue("tags"),
		Content: r.FormValue("content"),
		Private: r.FormValue("private") != "",
	}
}

func (f *writeupForm) validate() {
	if f.Title == "" {
		f.Errors = append(f.Errors, "Title is required.")
	}
	if len(f.Title) > 200 {
		f.Errors = append(f.Errors, "Title must be at most 200 characters.")
	}
	if strings.TrimSpace(f.Content) == "" {
		f.Errors = append(f.Errors, "Content is required.")
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
