package core

import (
	"errors"
	"strings"
	"time"
)

const (
	MethodCash     PaymentMethod = "cash"
	MethodCheck    PaymentMethod = "check"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"

	StatusPaid    PaymentStatus = "paid"
	StatusPending PaymentStatus = "pending"

	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectPaused    ProjectStatus = "paused"

	ContractActive    ContractStatus = "active"
	ContractCompleted ContractStatus = "completed"
	ContractCancelled ContractStatus = "cancelled"

	RecipientContractor RecipientType = "contractor"
	RecipientSupplier   RecipientType = "supplier"
)

type (
	PaymentMethod  string
	PaymentStatus  string
	ProjectStatus  string
	ContractStatus string
	RecipientType  string

	// Ref is an owned reference: deleting the referenced entity also deletes
	// every record holding it (cascade).
	Ref string

	// WeakRef may outlive the entity it points to. Lookups resolve to an
	// explicit absent value instead of failing.
	WeakRef string

	// Document is an attachment carried inline with a record (base64 payload,
	// encoded by the client before the record reaches the API).
	Document struct {
		Name     string `json:"name"`
		MimeType string `json:"mimeType"`
		Data     string `json:"data"`
		Size     int64  `json:"size"`
	}

	Project struct {
		ID        string        `json:"id"`
		Name      string        `json:"name"`
		Location  string        `json:"location,omitempty"`
		StartDate Date          `json:"startDate"`
		Status    ProjectStatus `json:"status"`
		Active    bool          `json:"active"`
		CreatedAt time.Time     `json:"createdAt"`
		UpdatedAt time.Time     `json:"updatedAt"`
	}

	Recipient struct {
		ID        string        `json:"id"`
		Name      string        `json:"name"`
		Type      RecipientType `json:"type"`
		Phone     string        `json:"phone,omitempty"`
		Email     string        `json:"email,omitempty"`
		Address   string        `json:"address,omitempty"`
		Active    bool          `json:"active"`
		CreatedAt time.Time     `json:"createdAt"`
		UpdatedAt time.Time     `json:"updatedAt"`
	}

	Category struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
		Icon  string `json:"icon"`
	}

	MaterialCategory struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
		Icon  string `json:"icon"`
	}

	Payment struct {
		ID          string        `json:"id"`
		Amount      Money         `json:"amount"`
		Method      PaymentMethod `json:"paymentMethod"`
		PaymentDate Date          `json:"paymentDate"`
		DueDate     Date          `json:"dueDate"`
		Status      PaymentStatus `json:"status"`
		ProjectID   Ref           `json:"projectId"`
		RecipientID Ref           `json:"recipientId,omitempty"`
		CategoryID  WeakRef       `json:"categoryId,omitempty"`
		Description string        `json:"description,omitempty"`
		Documents   []Document    `json:"documents,omitempty"`
		CreatedAt   time.Time     `json:"createdAt"`
		UpdatedAt   time.Time     `json:"updatedAt"`
	}

	Material struct {
		ID         string     `json:"id"`
		Name       string     `json:"name"`
		Quantity   float64    `json:"quantity"`
		Unit       string     `json:"unit"`
		Date       Date       `json:"date"`
		ProjectID  WeakRef    `json:"projectId,omitempty"`
		SupplierID WeakRef    `json:"supplierId,omitempty"`
		CategoryID WeakRef    `json:"materialCategoryId,omitempty"`
		Notes      string     `json:"notes,omitempty"`
		Documents  []Document `json:"documents,omitempty"`
		CreatedAt  time.Time  `json:"createdAt"`
		UpdatedAt  time.Time  `json:"updatedAt"`
	}

	ContractLine struct {
		Name      string  `json:"name"`
		Quantity  float64 `json:"quantity"`
		Unit      string  `json:"unit"`
		UnitPrice Money   `json:"unitPrice"`
		LineTotal Money   `json:"lineTotal"`
	}

	Contract struct {
		ID          string         `json:"id"`
		Name        string         `json:"name"`
		RecipientID WeakRef        `json:"recipientId"`
		ProjectID   WeakRef        `json:"projectId,omitempty"`
		Amount      Money          `json:"amount"`
		StartDate   Date           `json:"startDate"`
		EndDate     Date           `json:"endDate"`
		Status      ContractStatus `json:"status"`
		UnitPrice   bool           `json:"unitPrice"`
		Lines       []ContractLine `json:"lines,omitempty"`
		Documents   []Document     `json:"documents,omitempty"`
		CreatedAt   time.Time      `json:"createdAt"`
		UpdatedAt   time.Time      `json:"updatedAt"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMethod    = errors.New("invalid payment method")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidType      = errors.New("invalid recipient type")
	ErrEmptyName        = errors.New("empty name")
	ErrMissingProject   = errors.New("missing project reference")
	ErrMissingRecipient = errors.New("missing recipient reference")
	ErrMissingDueDate   = errors.New("due date required for check payments")
	ErrMissingLines     = errors.New("unit price contract has no line items")
	ErrInvalidQuantity  = errors.New("invalid quantity")
)

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool { return r == "" }

// IsZero reports whether the weak reference is unset.
func (r WeakRef) IsZero() bool { return r == "" }

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCheck, MethodCard, MethodTransfer:
		return true
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	return s == StatusPaid || s == StatusPending
}

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectPaused:
		return true
	}
	return false
}

func (s ContractStatus) Valid() bool {
	switch s {
	case ContractActive, ContractCompleted, ContractCancelled:
		return true
	}
	return false
}

func (t RecipientType) Valid() bool {
	return t == RecipientContractor || t == RecipientSupplier
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.StartDate.IsZero() {
		return ErrInvalidDate
	}
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (r Recipient) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if !r.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c MaterialCategory) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Normalize applies entry defaults: check payments without an explicit
// status start out pending, everything else defaults to paid.
func (p *Payment) Normalize() {
	if p.Status == "" {
		if p.Method == MethodCheck {
			p.Status = StatusPending
		} else {
			p.Status = StatusPaid
		}
	}
}

func (p Payment) Validate() error {
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if !p.Method.Valid() {
		return ErrInvalidMethod
	}
	if p.PaymentDate.IsZero() {
		return ErrInvalidDate
	}
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if p.ProjectID.IsZero() {
		return ErrMissingProject
	}
	if p.Method == MethodCheck && p.DueDate.IsZero() {
		return ErrMissingDueDate
	}
	return nil
}

func (m Material) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if m.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if m.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Total computes the line total from quantity and unit price with half-up
// rounding on the cent.
func (l ContractLine) Total() Money {
	return Money{Cents: roundCents(l.Quantity * float64(l.UnitPrice.Cents))}
}

// RecalcTotal re-derives line totals and, for unit price contracts, the
// contract amount. The direct amount field is not independently editable
// while unit price mode is active.
func (c *Contract) RecalcTotal() {
	if !c.UnitPrice {
		return
	}
	var sum int64
	for i := range c.Lines {
		c.Lines[i].LineTotal = c.Lines[i].Total()
		sum += c.Lines[i].LineTotal.Cents
	}
	c.Amount = Money{Cents: sum}
}

func (c Contract) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.RecipientID.IsZero() {
		return ErrMissingRecipient
	}
	if c.StartDate.IsZero() {
		return ErrInvalidDate
	}
	if !c.Status.Valid() {
		return ErrInvalidStatus
	}
	if c.UnitPrice {
		if len(c.Lines) == 0 {
			return ErrMissingLines
		}
		for _, l := range c.Lines {
			if l.Quantity <= 0 {
				return ErrInvalidQuantity
			}
			if l.UnitPrice.Cents <= 0 {
				return ErrInvalidAmount
			}
		}
	} else if err := c.Amount.Validate(); err != nil {
		return err
	}
	return nil
}
