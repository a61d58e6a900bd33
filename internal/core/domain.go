package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Visa       CardType = "Visa"
	MasterCard CardType = "MasterCard"
	Discover   CardType = "Discover"
)

const (
	maxNameLength   = 200
	maxNumberLength = 64
)

type (
	CardType string

	Card struct {
		ID        int64
		Name      string
		Number    string
		Limit     int32
		ExpMonth  int16
		ExpYear   int16
		Color     []byte // encoded, see EncodeColor
		Type      CardType
		Timestamp time.Time
	}

	CardTransaction struct {
		ID         int64
		CardID     int64 // owning card
		Name       string
		Amount     decimal.Decimal
		Timestamp  time.Time
		PhotoData  []byte // optional JPEG
		Categories []TransactionCategory
	}

	TransactionCategory struct {
		ID        int64
		Name      string
		Color     []byte
		Timestamp time.Time
	}
)

// ErrValidation marks errors caused by user input rather than the store.
var ErrValidation = errors.New("validation failed")

var (
	ErrEmptyName     = errors.New("empty name")
	ErrNameTooLong   = errors.New("name too long (max 200 characters)")
	ErrNumberTooLong = errors.New("card number too long (max 64 characters)")
	ErrInvalidMonth  = errors.New("invalid expiration month")
	ErrInvalidYear   = errors.New("invalid expiration year")
	ErrInvalidType   = errors.New("invalid card type")
	ErrMissingCard   = errors.New("transaction has no owning card")
	ErrZeroTimestamp = errors.New("timestamp cannot be zero")
	ErrInvalidPhoto  = errors.New("invalid photo")
	ErrPhotoTooLarge = errors.New("photo too large")
)

// Invalid wraps err so that errors.Is(err, ErrValidation) holds.
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// CardTypes lists the selectable card types in display order.
func CardTypes() []CardType {
	return []CardType{Visa, MasterCard, Discover}
}

// ParseCardType accepts both the stored form and the display form with
// spaces ("Master Card"). An empty value selects Visa.
func ParseCardType(s string) (CardType, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return Visa, nil
	}
	for _, t := range CardTypes() {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func (t CardType) Valid() bool {
	switch t {
	case Visa, MasterCard, Discover:
		return true
	}
	return false
}

// Label is the display form, e.g. "Master Card".
func (t CardType) Label() string {
	if t == MasterCard {
		return "Master Card"
	}
	return string(t)
}

// ImageName is the asset name for the card brand logo.
func (t CardType) ImageName() string {
	if t == "" {
		return strings.ToLower(string(Visa))
	}
	return strings.ToLower(string(t))
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (c Card) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if len(c.Number) > maxNumberLength {
		return ErrNumberTooLong
	}
	if c.ExpMonth < 1 || c.ExpMonth > 12 {
		return ErrInvalidMonth
	}
	if c.ExpYear < 1 || c.ExpYear > 9999 {
		return ErrInvalidYear
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

// ExpiryLabel renders the "valid to" date as MM/YY.
func (c Card) ExpiryLabel() string {
	return fmt.Sprintf("%02d/%02d", c.ExpMonth, c.ExpYear%2000)
}

// DisplayColor decodes the stored color, falling back to DefaultCardColor.
func (c Card) DisplayColor() Color {
	if col, ok := DecodeColor(c.Color); ok {
		return col
	}
	return DefaultCardColor
}

func (t CardTransaction) Validate() error {
	if t.CardID <= 0 {
		return ErrMissingCard
	}
	if err := validateName(t.Name); err != nil {
		return err
	}
	if t.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	return nil
}

// CategoryIDs returns the ids of the transaction's categories.
func (t CardTransaction) CategoryIDs() []int64 {
	ids := make([]int64, 0, len(t.Categories))
	for _, c := range t.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

// HasPhoto reports whether a receipt photo is attached.
func (t CardTransaction) HasPhoto() bool {
	return len(t.PhotoData) > 0
}

func (c TransactionCategory) Validate() error {
	return validateName(c.Name)
}

// DisplayColor decodes the stored color, falling back to DefaultCategoryColor.
func (c TransactionCategory) DisplayColor() Color {
	if col, ok := DecodeColor(c.Color); ok {
		return col
	}
	return DefaultCategoryColor
}

// UniqueIDs drops non-positive and duplicate ids, keeping first-seen order.
func UniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
