package vitalband

import (
	"context"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// AccountInput holds the login identity fields for a new end user.
type AccountInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileInput holds the patient profile fields linked to the new identity.
type ProfileInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Birthdate string `json:"birthdate,omitempty"`
	Sex       string `json:"sex"`
	HeightCM  string `json:"height_cm,omitempty"`
	WeightKG  string `json:"weight_kg,omitempty"`
}

// ProvisionPatientMessage is the compound input for the two-phase admin
// provisioning operation. It is transient; nothing in it is persisted
// locally.
type ProvisionPatientMessage struct {
	Account AccountInput `json:"account"`
	Profile ProfileInput `json:"profile"`
}

func (m ProvisionPatientMessage) Type() string { return "admin.patient.provision" }

// Validate enforces the required fields before any network call.
func (m ProvisionPatientMessage) Validate(phoneRegion string) error {
	if err := validation.ValidateStruct(&m.Account,
		validation.Field(&m.Account.Email, validation.Required, is.Email),
		validation.Field(&m.Account.Password, validation.Required, validation.Length(8, 100)),
	); err != nil {
		return invalidProvisionInput("account", err)
	}

	if err := validation.ValidateStruct(&m.Profile,
		validation.Field(&m.Profile.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&m.Profile.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&m.Profile.Email, is.Email),
		validation.Field(&m.Profile.Phone, validation.By(validatePhone(phoneRegion))),
		validation.Field(&m.Profile.Sex, validation.In("male", "female", "other", "unknown")),
	); err != nil {
		return invalidProvisionInput("profile", err)
	}

	return nil
}

func invalidProvisionInput(section string, err error) error {
	return ErrValidation.Clone().WithMetadata(map[string]any{
		"section": section,
		"fields":  err,
		"message": "provisioning input is invalid: " + err.Error(),
	})
}

func validatePhone(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		num, err := phonenumbers.Parse(s, region)
		if err != nil {
			return err
		}
		if !phonenumbers.IsValidNumber(num) {
			return goerrors.New("not a valid phone number", goerrors.CategoryValidation)
		}
		return nil
	}
}

// ProvisionResult reports a completed provisioning run.
type ProvisionResult struct {
	UserID        int64
	Profile       *PatientProfile
	CorrelationID uuid.UUID
}

// ProvisionPatientHandler materializes a new end user plus their linked
// patient profile as two sequential remote calls; the API exposes no atomic
// create-user-and-profile endpoint.
//
// The registration endpoint may auto-issue a token for the new account. That
// identity belongs to the new user, never the caller: the handler only reads
// the response and the acting administrator's session store is untouched.
type ProvisionPatientHandler struct {
	client      *Client
	logger      Logger
	activity    ActivitySink
	phoneRegion string
}

// NewProvisionPatientHandler creates a handler with sane defaults.
func NewProvisionPatientHandler(client *Client) *ProvisionPatientHandler {
	return &ProvisionPatientHandler{
		client:      client,
		logger:      defLogger{},
		activity:    noopActivitySink{},
		phoneRegion: "US",
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ProvisionPatientHandler) WithLogger(logger Logger) *ProvisionPatientHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithActivitySink sets the sink used to emit provisioning events.
func (h *ProvisionPatientHandler) WithActivitySink(sink ActivitySink) *ProvisionPatientHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithPhoneRegion sets the default region for profile phone validation.
func (h *ProvisionPatientHandler) WithPhoneRegion(region string) *ProvisionPatientHandler {
	if region != "" {
		h.phoneRegion = region
	}
	return h
}

func (h *ProvisionPatientHandler) Execute(ctx context.Context, msg ProvisionPatientMessage) (*ProvisionResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during patient provisioning",
		)
	default:
		return h.execute(ctx, msg)
	}
}

func (h *ProvisionPatientHandler) execute(ctx context.Context, msg ProvisionPatientMessage) (*ProvisionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	if err := msg.Validate(h.phoneRegion); err != nil {
		return nil, err
	}

	correlationID := provisionCorrelationID(msg.Account.Email)

	account := msg.Account
	if account.Name == "" {
		account.Name = strings.TrimSpace(msg.Profile.FirstName + " " + msg.Profile.LastName)
	}

	reg, err := h.client.Register(ctx, RegisterRequest{
		Name:            account.Name,
		Email:           account.Email,
		Password:        account.Password,
		ConfirmPassword: account.Password,
	})
	if err != nil {
		h.emit(ctx, ActivityEvent{
			EventType: ActivityEventProvisionFailure,
			Metadata: map[string]any{
				"phase":          "register",
				"email":          account.Email,
				"correlation_id": correlationID.String(),
				"error":          UserMessage(err),
			},
		})
		return nil, err
	}

	// The auto-issued token (if any) is deliberately discarded here.
	if reg.User == nil || reg.User.ID == 0 {
		err := ErrMalformedResponse.Clone().WithMetadata(map[string]any{
			"phase":          "register",
			"correlation_id": correlationID.String(),
			"reason":         "registration response is missing the new user id",
		})
		h.emit(ctx, ActivityEvent{
			EventType: ActivityEventProvisionFailure,
			Metadata:  map[string]any{"phase": "register", "error": err.Message},
		})
		return nil, err
	}

	newUserID := reg.User.ID

	profile, err := h.client.CreatePatient(ctx, h.patientCreate(newUserID, msg))
	if err != nil {
		// No compensation: the identity from phase one stays behind as an
		// orphaned login-only account for manual reconciliation. The phase
		// two error is reported verbatim, annotated with the orphan.
		h.logger.Warn("profile creation failed, user %d is now orphaned: %v", newUserID, err)
		h.emit(ctx, ActivityEvent{
			EventType: ActivityEventProvisionOrphaned,
			UserID:    strconv.FormatInt(newUserID, 10),
			Metadata: map[string]any{
				"phase":          "profile",
				"correlation_id": correlationID.String(),
				"error":          UserMessage(err),
			},
		})

		var rich *goerrors.Error
		if goerrors.As(err, &rich) {
			annotated := rich.Clone()
			meta := map[string]any{
				"orphaned_user_id": newUserID,
				"phase":            "profile",
				"correlation_id":   correlationID.String(),
			}
			if annotated.Metadata != nil {
				for k, v := range annotated.Metadata {
					meta[k] = v
				}
			}
			return nil, annotated.WithMetadata(meta)
		}
		return nil, err
	}

	h.emit(ctx, ActivityEvent{
		EventType: ActivityEventProvisionSuccess,
		UserID:    strconv.FormatInt(newUserID, 10),
		Metadata: map[string]any{
			"patient_id":     profile.ID,
			"correlation_id": correlationID.String(),
		},
	})

	return &ProvisionResult{
		UserID:        newUserID,
		Profile:       profile,
		CorrelationID: correlationID,
	}, nil
}

func (h *ProvisionPatientHandler) patientCreate(userID int64, msg ProvisionPatientMessage) PatientCreate {
	contactEmail := msg.Profile.Email
	if contactEmail == "" {
		contactEmail = msg.Account.Email
	}

	out := PatientCreate{
		UserID:    userID,
		FirstName: msg.Profile.FirstName,
		LastName:  msg.Profile.LastName,
		Sex:       msg.Profile.Sex,
		Email:     optional(contactEmail),
		Phone:     optional(msg.Profile.Phone),
		Birthdate: optional(msg.Profile.Birthdate),
		HeightCM:  optional(msg.Profile.HeightCM),
		WeightKG:  optional(msg.Profile.WeightKG),
	}
	if out.Sex == "" {
		out.Sex = "unknown"
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// provisionCorrelationID derives a stable id for the episode from the new
// account's email, so retries of the same provisioning attempt correlate in
// the audit trail.
func provisionCorrelationID(email string) uuid.UUID {
	if id, err := hashid.NewUUID(email); err == nil {
		return id
	}
	return uuid.New()
}

func (h *ProvisionPatientHandler) emit(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	sink := normalizeActivitySink(h.activity)
	if err := sink.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}
