package vitalband

// User is the authenticated principal, returned alongside the token at login
// or fetched from /auth/me when the login response omits it.
type User struct {
	ID    int64    `json:"id"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
	Name  string   `json:"name,omitempty"`
}

// Valid reports whether the record is complete enough to authenticate as.
func (u *User) Valid() bool {
	return u != nil && u.ID != 0 && u.Email != "" && u.Role != ""
}

// Session pairs the bearer token with the user it authenticates. A session is
// only ever observed fully present or fully absent; a token without a user is
// an invalid intermediate that never leaves the store.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Complete reports whether both halves of the session are present and usable.
func (s *Session) Complete() bool {
	return s != nil && s.Token != "" && s.User.Valid()
}

// Credential is a transient login input; it is never persisted.
type Credential struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user,omitempty"`
}

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password,omitempty"`
}

// RegisterResponse may carry a token auto-issued for the new account. Callers
// provisioning on behalf of someone else must discard it; only
// SessionController applies tokens to the session store.
type RegisterResponse struct {
	Message     string `json:"message"`
	User        *User  `json:"user"`
	AccessToken string `json:"access_token,omitempty"`
}

type ResetPasswordRequest struct {
	Token              string `json:"token"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ChatQuery is a question posed to the portal assistant.
type ChatQuery struct {
	Message string `json:"message"`
}

// ChatReply is the assistant's answer.
type ChatReply struct {
	Reply string `json:"reply"`
}

// PatientProfile is the domain profile linked to a login identity. Decimal
// fields travel as strings, matching the wire format.
type PatientProfile struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	FullName  string  `json:"full_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Birthdate *string `json:"birthdate,omitempty"`
	Sex       string  `json:"sex"`
	HeightCM  *string `json:"height_cm,omitempty"`
	WeightKG  *string `json:"weight_kg,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// PatientCreate is the profile-creation payload; UserID links the profile to
// an existing login identity.
type PatientCreate struct {
	UserID    int64   `json:"user_id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Birthdate *string `json:"birthdate,omitempty"`
	Sex       string  `json:"sex"`
	HeightCM  *string `json:"height_cm,omitempty"`
	WeightKG  *string `json:"weight_kg,omitempty"`
}

type PatientUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Birthdate *string `json:"birthdate,omitempty"`
	Sex       *string `json:"sex,omitempty"`
	HeightCM  *string `json:"height_cm,omitempty"`
	WeightKG  *string `json:"weight_kg,omitempty"`
}

type Device struct {
	ID           int64  `json:"id"`
	PatientID    *int64 `json:"patient_id"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
	Status       string `json:"status"`
	RegisteredAt string `json:"registered_at,omitempty"`
}

type DeviceCreate struct {
	Serial    string `json:"serial"`
	Model     string `json:"model"`
	Status    string `json:"status,omitempty"`
	PatientID *int64 `json:"patient_id,omitempty"`
}

type DeviceUpdate struct {
	Model  *string `json:"model,omitempty"`
	Status *string `json:"status,omitempty"`
}

type Reading struct {
	ID          int64    `json:"id"`
	DeviceID    int64    `json:"device_id"`
	TS          string   `json:"ts"`
	HeartRate   *float64 `json:"heart_rate_bpm"`
	SpO2        *float64 `json:"spo2_pct"`
	TempC       *string  `json:"temp_c,omitempty"`
	MotionLevel *float64 `json:"motion_level,omitempty"`
}

type LatestReadings struct {
	LatestReading *Reading `json:"latest_reading"`
	DeviceStatus  *string  `json:"device_status"`
}

type Alert struct {
	ID             int64   `json:"id"`
	PatientID      int64   `json:"patient_id"`
	TS             string  `json:"ts"`
	Type           string  `json:"type"`
	Severity       string  `json:"severity"`
	Message        *string `json:"message"`
	AcknowledgedBy *int64  `json:"acknowledged_by"`
	AcknowledgedAt *string `json:"acknowledged_at"`
}

type Threshold struct {
	ID        int64   `json:"id"`
	PatientID *int64  `json:"patient_id"`
	Metric    string  `json:"metric"`
	MinValue  *string `json:"min_value"`
	MaxValue  *string `json:"max_value"`
	CreatedAt string  `json:"created_at,omitempty"`
}

type ThresholdUpdate struct {
	MinValue *string `json:"min_value,omitempty"`
	MaxValue *string `json:"max_value,omitempty"`
}

type DeviceTelemetry struct {
	ID         int64    `json:"id"`
	DeviceID   int64    `json:"device_id"`
	TS         string   `json:"ts"`
	BatteryMV  *int64   `json:"battery_mv"`
	BatteryPct *float64 `json:"battery_pct"`
	Charging   *bool    `json:"charging"`
	RSSIDBm    *int64   `json:"rssi_dbm,omitempty"`
	BoardTempC *string  `json:"board_temp_c,omitempty"`
}

// listResponse is the generic list envelope the API wraps collections in.
type listResponse[T any] struct {
	Items []T `json:"items"`
}
