package http

import (
	"net/http"

	"cards/internal/core"
	applog "cards/internal/log"
)

type categoriesView struct {
	Title      string
	Categories []core.TransactionCategory
	Form       CategoryForm
	BackCard   int64 // card whose add-transaction form linked here, 0 if none
	Error      string
}

func (v categoriesView) returnURL() string {
	if v.BackCard > 0 {
		return "/categories?card=" + formatID(v.BackCard)
	}
	return "/categories"
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.categories.List(r.Context())
	if err != nil {
		s.fail(w, r, err, applog.ComponentCategory, applog.OpList)
		return
	}
	s.render(w, r, http.StatusOK, "categories.html", categoriesView{
		Title:      "Categories",
		Categories: cats,
		Form:       CategoryForm{Color: core.DefaultCategoryFormColor.Hex()},
		BackCard:   ParseCardID(r.URL.Query()),
	})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.badRequest(w, r, err, applog.ComponentCategory)
		return
	}
	form := ReadCategoryForm(r.PostForm)
	view := categoriesView{Title: "Categories", Form: form, BackCard: ParseCardID(r.PostForm)}

	if _, err := s.categories.Create(r.Context(), form.Name, form.ColorValue()); err != nil {
		if StatusFor(err) != http.StatusUnprocessableEntity || IsHTMX(r) {
			s.fail(w, r, err, applog.ComponentCategory, applog.OpCreate)
			return
		}
		cats, lerr := s.categories.List(r.Context())
		if lerr != nil {
			s.fail(w, r, lerr, applog.ComponentCategory, applog.OpList)
			return
		}
		view.Categories = cats
		view.Error = UserMessage(err)
		s.render(w, r, http.StatusUnprocessableEntity, "categories.html", view)
		return
	}

	Redirect(r, view.returnURL()).TriggerCategoriesChanged().Write(w)
}

// handleDeleteCategory removes the category from every transaction.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		s.fail(w, r, notFound(err), applog.ComponentCategory, applog.OpDelete)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.badRequest(w, r, err, applog.ComponentCategory)
		return
	}
	if err := s.categories.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err, applog.ComponentCategory, applog.OpDelete)
		return
	}

	view := categoriesView{BackCard: ParseCardID(r.PostForm)}
	Redirect(r, view.returnURL()).TriggerCategoriesChanged().Write(w)
}
