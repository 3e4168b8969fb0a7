package core

import (
	"errors"
	"strings"
)

const (
	GroupEntrada Group = "entrada"
	GroupSaida   Group = "saida"

	StatusPaid    Status = "paid"
	StatusPending Status = "pending"
)

// Collection names as delivered by the store.
const (
	CollectionAccounts      = "accounts"
	CollectionCategories    = "categorias"
	CollectionSubcategories = "subcategorias"
	CollectionEntries       = "entries"
)

// MaxInstallments bounds the expansion of a single submitted entry.
const MaxInstallments = 120

type (
	// Group is the flow direction of a category.
	Group string

	// Status tells whether an entry is settled.
	Status string

	Account struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		InitialBalance Money  `json:"initialBalance"`
	}

	Category struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Group Group  `json:"group"`
	}

	Subcategory struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		CategoryID string `json:"categoryId"`
	}

	Entry struct {
		ID            string `json:"id"`
		Date          string `json:"date"`      // YYYY-MM-DD
		YearMonth     string `json:"yearMonth"` // YYYY-MM, derived from Date
		CategoryID    string `json:"categoryId"`
		SubcategoryID string `json:"subcategoryId,omitempty"`
		AccountID     string `json:"accountId"`
		Description   string `json:"description"`
		Value         Money  `json:"value"` // unsigned magnitude
		Status        Status `json:"status"`
	}
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyID           = errors.New("empty id")
	ErrInvalidAmount     = NewValidationError("value", "valor inválido")
	ErrInvalidDate       = NewValidationError("date", "data inválida")
	ErrMissingAccount    = NewValidationError("accountId", "conta obrigatória")
	ErrMissingCategory   = NewValidationError("categoryId", "categoria obrigatória")
	ErrInvalidStatus     = NewValidationError("status", "status inválido")
	ErrEmptyName         = NewValidationError("name", "nome obrigatório")
	ErrInvalidGroup      = NewValidationError("group", "grupo inválido")
	ErrInvalidInstalment = NewValidationError("installments", "número de parcelas inválido")
)

// Sign is +1 for inflows and -1 for outflows. Anything that is not an
// outflow counts as an inflow.
func (g Group) Sign() int64 {
	if g == GroupSaida {
		return -1
	}
	return 1
}

func (g Group) Valid() bool {
	return g == GroupEntrada || g == GroupSaida
}

func (s Status) Valid() bool {
	return s == StatusPaid || s == StatusPending
}

// Paid reports whether the entry counts towards settled totals.
func (e Entry) Paid() bool {
	return e.Status == StatusPaid
}

// Day returns the parsed calendar day of the entry.
func (e Entry) Day() (Day, bool) {
	return ParseDay(e.Date)
}

// Normalize trims text fields, defaults the status and derives YearMonth.
func (e Entry) Normalize() Entry {
	e.Description = strings.TrimSpace(e.Description)
	e.CategoryID = strings.TrimSpace(e.CategoryID)
	e.SubcategoryID = strings.TrimSpace(e.SubcategoryID)
	e.AccountID = strings.TrimSpace(e.AccountID)
	if e.Status == "" {
		e.Status = StatusPending
	}
	if d, ok := ParseDay(e.Date); ok {
		e.Date = d.String()
		e.YearMonth = d.YearMonth()
	}
	return e
}

func (e Entry) Validate() error {
	if e.Value.Cents <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.AccountID) == "" {
		return ErrMissingAccount
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrMissingCategory
	}
	if _, ok := ParseDay(e.Date); !ok {
		return ErrInvalidDate
	}
	if !e.Status.Valid() {
		return ErrInvalidStatus
	}
	if len(e.Description) > 200 {
		return NewValidationError("description", "descrição muito longa (máx. 200 caracteres)")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Group.Valid() {
		return ErrInvalidGroup
	}
	return nil
}

func (s Subcategory) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(s.CategoryID) == "" {
		return NewValidationError("categoryId", "selecione a categoria pai")
	}
	return nil
}

// Validate only requires a name: the initial balance may be zero or negative.
func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// SubcategoryMetricName is the KPI key of a subcategory.
func SubcategoryMetricName(category, subcategory string) string {
	return category + " > " + subcategory
}
