// This file turns form and query input into domain values.

package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cards/internal/core"
	"cards/internal/services"
)

// multipartMemory is how much of a multipart body is kept in memory before spilling to disk.
const multipartMemory = 1 << 20

// ParseID reads a positive integer path value.
func ParseID(r *http.Request, name string) (int64, error) {
	v := r.PathValue(name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return id, nil
}

// ParseSelection reads the repeated category query parameter. Malformed ids are skipped.
func ParseSelection(query url.Values) []int64 {
	var ids []int64
	for _, v := range query["category"] {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return core.UniqueIDs(ids)
}

// ParseCardID reads the optional ?card= query parameter; 0 means none.
func ParseCardID(query url.Values) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(query.Get("card")), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// CardForm holds the raw card form values so that a rejected form can be re-rendered.
type CardForm struct {
	Name     string
	Number   string
	Limit    string
	ExpMonth string
	ExpYear  string
	Color    string
	Type     string
}

func ReadCardForm(form url.Values) CardForm {
	return CardForm{
		Name:     sanitizeInput(form.Get("name")),
		Number:   sanitizeInput(form.Get("number")),
		Limit:    strings.TrimSpace(form.Get("limit")),
		ExpMonth: strings.TrimSpace(form.Get("exp_month")),
		ExpYear:  strings.TrimSpace(form.Get("exp_year")),
		Color:    strings.TrimSpace(form.Get("color")),
		Type:     strings.TrimSpace(form.Get("type")),
	}
}

// CardFormFrom fills the form with an existing card.
func CardFormFrom(c core.Card) CardForm {
	return CardForm{
		Name:     c.Name,
		Number:   c.Number,
		Limit:    strconv.FormatInt(int64(c.Limit), 10),
		ExpMonth: strconv.Itoa(int(c.ExpMonth)),
		ExpYear:  strconv.Itoa(int(c.ExpYear)),
		Color:    c.DisplayColor().Hex(),
		Type:     string(c.Type),
	}
}

// NewCardForm is the blank add-card form: current month and year, blue, Visa.
func NewCardForm(now time.Time) CardForm {
	return CardForm{
		Limit:    "0",
		ExpMonth: strconv.Itoa(int(now.Month())),
		ExpYear:  strconv.Itoa(now.Year()),
		Color:    core.DefaultCardFormColor.Hex(),
		Type:     string(core.Visa),
	}
}

// Card converts the form to a card. The limit and an unparseable color are
// lenient, everything else is checked by Card.Validate.
func (f CardForm) Card() (core.Card, error) {
	typ, err := core.ParseCardType(f.Type)
	if err != nil {
		return core.Card{}, core.Invalid(err)
	}
	color, err := core.ParseHexColor(f.Color)
	if err != nil {
		color = core.DefaultCardFormColor
	}
	return core.Card{
		Name:     f.Name,
		Number:   f.Number,
		Limit:    core.ParseLimit(f.Limit),
		ExpMonth: parseSmallInt(f.ExpMonth),
		ExpYear:  parseSmallInt(f.ExpYear),
		Color:    color.Encode(),
		Type:     typ,
	}, nil
}

// parseSmallInt yields 0 for anything outside int16, which validation then rejects.
func parseSmallInt(s string) int16 {
	v, err := strconv.ParseInt(s, 10, 16)
	if err != nil {
		return 0
	}
	return int16(v)
}

// TransactionForm holds the raw transaction form values.
type TransactionForm struct {
	Name        string
	Amount      string
	Date        string
	CategoryIDs []int64
}

// Selected reports whether the category was ticked.
func (f TransactionForm) Selected(id int64) bool {
	for _, c := range f.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}

// ParseTransactionForm reads a multipart (or urlencoded) transaction form.
// The body is capped at maxUpload plus room for the text fields.
func ParseTransactionForm(w http.ResponseWriter, r *http.Request, cardID, maxUpload int64) (TransactionForm, services.TransactionInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+multipartMemory)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return TransactionForm{}, services.TransactionInput{}, core.Invalid(core.ErrPhotoTooLarge)
		}
		return TransactionForm{}, services.TransactionInput{}, fmt.Errorf("parse transaction form: %w", err)
	}

	form := TransactionForm{
		Name:        sanitizeInput(r.FormValue("name")),
		Amount:      strings.TrimSpace(r.FormValue("amount")),
		Date:        strings.TrimSpace(r.FormValue("date")),
		CategoryIDs: parseIDList(r.Form["category"]),
	}
	in := services.TransactionInput{
		CardID:      cardID,
		Name:        form.Name,
		Amount:      form.Amount,
		CategoryIDs: form.CategoryIDs,
	}

	if form.Date != "" {
		d, err := time.ParseInLocation(dateLayout, form.Date, time.Local)
		if err != nil {
			return form, in, core.Invalid(fmt.Errorf("invalid date %q", form.Date))
		}
		in.Date = d
	}

	photo, err := readPhoto(r, maxUpload)
	if err != nil {
		return form, in, err
	}
	in.Photo = photo

	return form, in, nil
}

func readPhoto(r *http.Request, maxUpload int64) ([]byte, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	f, hdr, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	defer f.Close()
	if hdr.Size == 0 {
		return nil, nil
	}
	if hdr.Size > maxUpload {
		return nil, core.Invalid(core.ErrPhotoTooLarge)
	}
	data, err := io.ReadAll(io.LimitReader(f, maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if int64(len(data)) > maxUpload {
		return nil, core.Invalid(core.ErrPhotoTooLarge)
	}
	return data, nil
}

func parseIDList(values []string) []int64 {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return core.UniqueIDs(ids)
}

// CategoryForm holds the raw category form values.
type CategoryForm struct {
	Name  string
	Color string
}

func ReadCategoryForm(form url.Values) CategoryForm {
	return CategoryForm{
		Name:  sanitizeInput(form.Get("name")),
		Color: strings.TrimSpace(form.Get("color")),
	}
}

// ColorValue parses the color input, falling back to the default category form color.
func (f CategoryForm) ColorValue() core.Color {
	c, err := core.ParseHexColor(f.Color)
	if err != nil {
		return core.DefaultCategoryFormColor
	}
	return c
}
