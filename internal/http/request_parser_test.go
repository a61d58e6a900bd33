package http

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"testing"
	"time"

	"cards/internal/core"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{"5", 5, false},
		{"123456789", 123456789, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.SetPathValue("id", tt.value)
			got, err := ParseID(r, "id")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseID(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseID(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		want  []int64
	}{
		{"none", url.Values{}, []int64{}},
		{"single", url.Values{"category": {"3"}}, []int64{3}},
		{"repeated keeps order", url.Values{"category": {"9", "2", "9"}}, []int64{9, 2}},
		{"malformed skipped", url.Values{"category": {"x", "-1", "0", " 4 "}}, []int64{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSelection(tt.query)
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseSelection() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseCardID(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"", 0},
		{"7", 7},
		{"nope", 0},
		{"-2", 0},
	}
	for _, tt := range tests {
		if got := ParseCardID(url.Values{"card": {tt.raw}}); got != tt.want {
			t.Errorf("ParseCardID(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestCardForm_Card(t *testing.T) {
	tests := []struct {
		name     string
		form     url.Values
		want     core.Card
		wantErr  error
		checkCol bool
	}{
		{
			name: "complete form",
			form: url.Values{
				"name": {"  Travel  "}, "number": {"4111 1111"}, "limit": {"5000"},
				"exp_month": {"4"}, "exp_year": {"2028"}, "color": {"#ff0000"}, "type": {"Master Card"},
			},
			want: core.Card{
				Name: "Travel", Number: "4111 1111", Limit: 5000,
				ExpMonth: 4, ExpYear: 2028, Color: []byte{0xff, 0, 0, 0xff}, Type: core.MasterCard,
			},
			checkCol: true,
		},
		{
			name: "lenient limit and default type",
			form: url.Values{"name": {"Groceries"}, "limit": {"lots"}, "exp_month": {"12"}, "exp_year": {"2030"}},
			want: core.Card{Name: "Groceries", ExpMonth: 12, ExpYear: 2030, Type: core.Visa},
		},
		{
			name: "bad color falls back",
			form: url.Values{"name": {"A"}, "exp_month": {"1"}, "exp_year": {"2030"}, "color": {"blue"}},
			want: core.Card{Name: "A", ExpMonth: 1, ExpYear: 2030, Type: core.Visa,
				Color: core.DefaultCardFormColor.Encode()},
			checkCol: true,
		},
		{
			name:    "unknown type is invalid",
			form:    url.Values{"name": {"A"}, "type": {"Amex"}},
			wantErr: core.ErrInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCardForm(tt.form).Card()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !errors.Is(err, core.ErrValidation) {
					t.Fatalf("Card() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Card() error = %v", err)
			}
			if got.Name != tt.want.Name || got.Number != tt.want.Number || got.Limit != tt.want.Limit ||
				got.ExpMonth != tt.want.ExpMonth || got.ExpYear != tt.want.ExpYear || got.Type != tt.want.Type {
				t.Errorf("Card() = %+v, want %+v", got, tt.want)
			}
			if tt.checkCol && !bytes.Equal(got.Color, tt.want.Color) {
				t.Errorf("Color = %v, want %v", got.Color, tt.want.Color)
			}
		})
	}
}

func TestCardForm_UnparseableMonthFailsValidation(t *testing.T) {
	card, err := ReadCardForm(url.Values{"name": {"A"}, "exp_month": {"June"}, "exp_year": {"2030"}}).Card()
	if err != nil {
		t.Fatalf("Card() error = %v", err)
	}
	if !errors.Is(card.Validate(), core.ErrInvalidMonth) {
		t.Errorf("Validate() = %v, want ErrInvalidMonth", card.Validate())
	}
}

func TestNewCardFormAndCardFormFrom(t *testing.T) {
	now := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.Local)
	blank := NewCardForm(now)
	if blank.ExpMonth != "3" || blank.ExpYear != "2026" {
		t.Errorf("NewCardForm expiry = %s/%s, want 3/2026", blank.ExpMonth, blank.ExpYear)
	}
	if blank.Color != core.DefaultCardFormColor.Hex() || blank.Type != string(core.Visa) {
		t.Errorf("NewCardForm defaults = %+v", blank)
	}

	card := core.Card{Name: "X", Limit: 10, ExpMonth: 11, ExpYear: 2031, Type: core.Discover,
		Color: core.Color{R: 1, G: 2, B: 3, A: 255}.Encode()}
	form := CardFormFrom(card)
	if form.ExpMonth != "11" || form.ExpYear != "2031" {
		t.Errorf("CardFormFrom expiry = %s/%s, want 11/2031", form.ExpMonth, form.ExpYear)
	}
	if form.Color != "#010203" || form.Limit != "10" || form.Type != "Discover" {
		t.Errorf("CardFormFrom = %+v", form)
	}
}

func multipartRequest(t *testing.T, fields map[string][]string, photo []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vs := range fields {
		for _, v := range vs {
			if err := mw.WriteField(k, v); err != nil {
				t.Fatalf("write field: %v", err)
			}
		}
	}
	if photo != nil {
		fw, err := mw.CreateFormFile("photo", "receipt.png")
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		if _, err := fw.Write(photo); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, "/cards/1/transactions", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestParseTransactionForm(t *testing.T) {
	r := multipartRequest(t, map[string][]string{
		"name":     {" Coffee "},
		"amount":   {"3,20"},
		"date":     {"2026-02-14"},
		"category": {"2", "5", "2", "bad"},
	}, []byte("image-bytes"))

	form, in, err := ParseTransactionForm(httptest.NewRecorder(), r, 1, 1<<20)
	if err != nil {
		t.Fatalf("ParseTransactionForm() error = %v", err)
	}
	if form.Name != "Coffee" || form.Amount != "3,20" {
		t.Errorf("form = %+v", form)
	}
	if !slices.Equal(in.CategoryIDs, []int64{2, 5}) {
		t.Errorf("CategoryIDs = %v, want [2 5]", in.CategoryIDs)
	}
	if !form.Selected(5) || form.Selected(3) {
		t.Errorf("Selected() mismatch for %v", form.CategoryIDs)
	}
	want := time.Date(2026, time.February, 14, 0, 0, 0, 0, time.Local)
	if !in.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", in.Date, want)
	}
	if string(in.Photo) != "image-bytes" || in.CardID != 1 {
		t.Errorf("input = card %d photo %q", in.CardID, in.Photo)
	}
}

func TestParseTransactionForm_URLEncodedWithoutDate(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/cards/4/transactions", strings.NewReader("name=Lunch&amount=12"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, in, err := ParseTransactionForm(httptest.NewRecorder(), r, 4, 1<<20)
	if err != nil {
		t.Fatalf("ParseTransactionForm() error = %v", err)
	}
	if !in.Date.IsZero() {
		t.Errorf("Date = %v, want zero so the service picks today", in.Date)
	}
	if in.Photo != nil {
		t.Errorf("Photo = %v, want nil", in.Photo)
	}
}

func TestParseTransactionForm_Rejections(t *testing.T) {
	t.Run("bad date", func(t *testing.T) {
		r := multipartRequest(t, map[string][]string{"name": {"x"}, "date": {"14/02/2026"}}, nil)
		_, _, err := ParseTransactionForm(httptest.NewRecorder(), r, 1, 1<<20)
		if !errors.Is(err, core.ErrValidation) {
			t.Errorf("error = %v, want validation error", err)
		}
	})

	t.Run("photo over the limit", func(t *testing.T) {
		r := multipartRequest(t, map[string][]string{"name": {"x"}}, bytes.Repeat([]byte{1}, 4096))
		_, _, err := ParseTransactionForm(httptest.NewRecorder(), r, 1, 1024)
		if !errors.Is(err, core.ErrPhotoTooLarge) || !errors.Is(err, core.ErrValidation) {
			t.Errorf("error = %v, want ErrPhotoTooLarge", err)
		}
	})
}

func TestCategoryForm_ColorValue(t *testing.T) {
	if got := ReadCategoryForm(url.Values{"color": {"#00ff00"}}).ColorValue(); got != (core.Color{G: 0xff, A: 0xff}) {
		t.Errorf("ColorValue() = %+v", got)
	}
	if got := ReadCategoryForm(url.Values{"color": {""}}).ColorValue(); got != core.DefaultCategoryFormColor {
		t.Errorf("ColorValue() = %+v, want default", got)
	}
}

func TestLinkHelpers(t *testing.T) {
	sel := core.NewCategorySet(5, 2)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"index empty", indexURL(0, nil), "/"},
		{"index card only", indexURL(3, nil), "/?card=3"},
		{"index sorted selection", indexURL(3, sel), "/?card=3&category=2&category=5"},
		{"toggle off", toggleURL(3, sel, 5), "/?card=3&category=2"},
		{"toggle on", toggleURL(3, sel, 9), "/?card=3&category=2&category=5&category=9"},
		{"toggle list", toggleListURL(3, sel, 2), "/cards/3/transactions?category=5"},
		{"toggle list to empty", toggleListURL(3, core.NewCategorySet(2), 2), "/cards/3/transactions"},
		{"filter", filterURL(3, sel), "/cards/3/filter?category=2&category=5"},
		{"filter empty", filterURL(3, nil), "/cards/3/filter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}

	if len(sel) != 2 {
		t.Errorf("helpers mutated the selection: %v", sel)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x00b\tc\n "); got != "ab\tc" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
