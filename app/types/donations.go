package types

import (
	"regexp"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusSuccessful TransactionStatus = "successful"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusExpired    TransactionStatus = "expired"
)

// Terminal reports whether no further transitions can be observed for the
// transaction. The upstream provider never reopens a settled transaction.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TransactionStatusSuccessful, TransactionStatusFailed, TransactionStatusExpired:
		return true
	default:
		return false
	}
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive         SubscriptionStatus = "active"
	SubscriptionStatusPendingPayment SubscriptionStatus = "pending_payment"
	SubscriptionStatusPaused         SubscriptionStatus = "paused"
	SubscriptionStatusOverdue        SubscriptionStatus = "overdue"
	SubscriptionStatusCancelled      SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) Cancelled() bool {
	return s == SubscriptionStatusCancelled
}

func (s SubscriptionStatus) Paused() bool {
	return s == SubscriptionStatusPaused
}

const (
	DonationTypeInstant = "instant"
	DonationTypeMonthly = "monthly"
)

// Amounts are whole XAF units; mobile money carries no minor unit.
const (
	MinInstantAmountXAF int64 = 100
	MinMonthlyAmountXAF int64 = 500
)

var pauseDurations = map[int32]bool{1: true, 2: true, 3: true, 6: true}

func ValidPauseDuration(months int32) bool {
	return pauseDurations[months]
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidationErrors maps a request field to a human-readable reason. An empty
// map means the request is valid.
type ValidationErrors map[string]string

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return strings.Join(parts, "; ")
}

type Subscription struct {
	ID                 string             `json:"id"`
	DonorName          string             `json:"donorName"`
	DonorEmail         string             `json:"donorEmail"`
	Phone              string             `json:"phone"`
	Amount             int64              `json:"amount"`
	Message            string             `json:"message"`
	IsAnonymous        bool               `json:"isAnonymous"`
	Status             SubscriptionStatus `json:"status"`
	PausedUntil        string             `json:"pausedUntil,omitempty"`
	NextBillingDate    string             `json:"nextBillingDate,omitempty"`
	TotalPaid          int64              `json:"totalPaid"`
	SuccessfulPayments int32              `json:"successfulPayments"`
}

type CreateDonationRequest struct {
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Phone       string `json:"phone"`
	DonorName   string `json:"donorName"`
	DonorEmail  string `json:"donorEmail"`
	Message     string `json:"message"`
	IsAnonymous bool   `json:"isAnonymous"`
}

func NewCreateDonationRequestFromContext(ctx echo.Context) (*CreateDonationRequest, error) {
	var body CreateDonationRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Type = strings.ToLower(strings.TrimSpace(body.Type))
	if body.Type == "" {
		body.Type = DonationTypeInstant
	}
	body.Phone = strings.TrimSpace(body.Phone)
	body.DonorName = strings.TrimSpace(body.DonorName)
	body.DonorEmail = strings.ToLower(strings.TrimSpace(body.DonorEmail))
	body.Message = strings.TrimSpace(body.Message)

	return &body, nil
}

func (r *CreateDonationRequest) Validate() ValidationErrors {
	errs := ValidationErrors{}

	if r.Type != DonationTypeInstant && r.Type != DonationTypeMonthly {
		errs["type"] = "type must be instant or monthly"
		return errs
	}

	switch {
	case r.Amount <= 0:
		errs["amount"] = "amount must be a positive number"
	case r.Type == DonationTypeInstant && r.Amount < MinInstantAmountXAF:
		errs["amount"] = "minimum donation amount is 100 XAF"
	case r.Type == DonationTypeMonthly && r.Amount < MinMonthlyAmountXAF:
		errs["amount"] = "minimum monthly subscription amount is 500 XAF"
	}

	if r.Phone == "" {
		errs["phone"] = "phone number is required"
	}

	if r.Type == DonationTypeMonthly {
		if r.DonorEmail == "" {
			errs["donorEmail"] = "email is required for a monthly subscription"
		}
		if !r.IsAnonymous && r.DonorName == "" {
			errs["donorName"] = "donor name is required"
		}
	}
	if r.DonorEmail != "" && !emailPattern.MatchString(r.DonorEmail) {
		errs["donorEmail"] = "email address is invalid"
	}

	return errs
}

type GetDonationFlowRequest struct {
	FlowID string
}

func NewGetDonationFlowRequestFromContext(ctx echo.Context) *GetDonationFlowRequest {
	return &GetDonationFlowRequest{FlowID: strings.TrimSpace(ctx.Param("id"))}
}

func (r *GetDonationFlowRequest) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if r.FlowID == "" {
		errs["id"] = "flow id is required"
	}
	return errs
}

type MySubscriptionRequest struct {
	Email string
}

func NewMySubscriptionRequestFromContext(ctx echo.Context) *MySubscriptionRequest {
	return &MySubscriptionRequest{Email: strings.ToLower(strings.TrimSpace(ctx.QueryParam("email")))}
}

func (r *MySubscriptionRequest) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if r.Email == "" {
		errs["email"] = "email is required"
	} else if !emailPattern.MatchString(r.Email) {
		errs["email"] = "email address is invalid"
	}
	return errs
}

type UpdateSubscriptionRequest struct {
	ID         string `json:"-"`
	DonorEmail string `json:"donorEmail"`
	Amount     int64  `json:"amount"`
	Phone      string `json:"phone"`
	Message    string `json:"message"`
}

func NewUpdateSubscriptionRequestFromContext(ctx echo.Context) (*UpdateSubscriptionRequest, error) {
	var body UpdateSubscriptionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ID = strings.TrimSpace(ctx.Param("id"))
	body.DonorEmail = strings.ToLower(strings.TrimSpace(body.DonorEmail))
	body.Phone = strings.TrimSpace(body.Phone)
	body.Message = strings.TrimSpace(body.Message)
	return &body, nil
}

func (r *UpdateSubscriptionRequest) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if r.ID == "" {
		errs["id"] = "subscription id is required"
	}
	if r.DonorEmail == "" {
		errs["donorEmail"] = "email is required"
	} else if !emailPattern.MatchString(r.DonorEmail) {
		errs["donorEmail"] = "email address is invalid"
	}
	switch {
	case r.Amount <= 0:
		errs["amount"] = "amount must be a positive number"
	case r.Amount < MinMonthlyAmountXAF:
		errs["amount"] = "minimum monthly subscription amount is 500 XAF"
	}
	if r.Phone == "" {
		errs["phone"] = "phone number is required"
	}
	return errs
}

type PauseSubscriptionRequest struct {
	ID            string `json:"-"`
	DonorEmail    string `json:"donorEmail"`
	PauseDuration int32  `json:"pauseDuration"`
}

func NewPauseSubscriptionRequestFromContext(ctx echo.Context) (*PauseSubscriptionRequest, error) {
	var body PauseSubscriptionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ID = strings.TrimSpace(ctx.Param("id"))
	body.DonorEmail = strings.ToLower(strings.TrimSpace(body.DonorEmail))
	return &body, nil
}

func (r *PauseSubscriptionRequest) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if r.ID == "" {
		errs["id"] = "subscription id is required"
	}
	if r.DonorEmail == "" {
		errs["donorEmail"] = "email is required"
	}
	if !ValidPauseDuration(r.PauseDuration) {
		errs["pauseDuration"] = "pause duration must be 1, 2, 3 or 6 months"
	}
	return errs
}

type ResumeSubscriptionRequest struct {
	ID         string `json:"-"`
	DonorEmail string `json:"donorEmail"`
}

func NewResumeSubscriptionRequestFromContext(ctx echo.Context) (*ResumeSubscriptionRequest, error) {
	var body ResumeSubscriptionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ID = strings.TrimSpace(ctx.Param("id"))
	body.DonorEmail = strings.ToLower(strings.TrimSpace(body.DonorEmail))
	return &body, nil
}

func (r *ResumeSubscriptionRequest) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if r.ID == "" {
		errs["id"] = "subscription id is required"
	}
	if r.DonorEmail == "" {
		errs["donorEmail"] = "email is required"
	}
	return errs
}

type CancelSubscriptionRequest struct {
	ID           string `json:"-"`
	DonorEmail   string `json:"donorEmail"`
	CancelReason string `json:"cancelReason"`
}

func NewCancelSubscriptionRequestFromContext(ctx echo.Context) (*CancelSubscriptionRequest, error) {
	var body CancelSubscriptionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ID = strings.TrimSpace(ctx.Param("id"))
	body.DonorEmail = strings.ToLower(strings.TrimSpace(body.DonorEmail))
	body.CancelReason = strings.TrimSpace(body.CancelReason)
	return &body, nil
}

func (r *CancelSubscriptionRequest) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if r.ID == "" {
		errs["id"] = "subscription id is required"
	}
	if r.DonorEmail == "" {
		errs["donorEmail"] = "email is required"
	}
	return errs
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type FieldErrorsResponse struct {
	Error  string           `json:"error"`
	Fields ValidationErrors `json:"fields"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type DonationFlowResponse struct {
	FlowID        string                 `json:"flowId"`
	State         string                 `json:"state"`
	Message       string                 `json:"message,omitempty"`
	TransactionID string                 `json:"transactionId,omitempty"`
	Form          *CreateDonationRequest `json:"form,omitempty"`
	UpdatedAt     string                 `json:"updatedAt"`
}

type SubscriptionEnvelopeResponse struct {
	Subscription *Subscription `json:"subscription"`
}
