package vitalband

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Login exchanges a credential for a token and, when the server includes it,
// a user record. Nothing is persisted here; SessionController owns that.
func (c *Client) Login(ctx context.Context, credential Credential) (*LoginResponse, error) {
	out := &LoginResponse{}
	if err := c.post(ctx, "/auth/login", credential, out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, ErrMalformedResponse.Clone().WithMetadata(map[string]any{
			"path":   "/auth/login",
			"reason": "response is missing access_token",
		})
	}
	return out, nil
}

// Me returns the authenticated principal using the stored session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	out := &User{}
	if err := c.get(ctx, "/auth/me", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// MeWithToken returns the principal for an explicit token, used right after
// login when the response omitted the user and nothing is persisted yet.
func (c *Client) MeWithToken(ctx context.Context, token string) (*User, error) {
	out := &User{}
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, out, requestOptions{bearer: token})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Register creates a new login identity. The response may carry a token
// auto-issued for the new account; callers provisioning on behalf of another
// user must never apply it to their own session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	out := &RegisterResponse{}
	if err := c.post(ctx, "/auth/register", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ForgotPassword starts the password recovery flow.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	out := &MessageResponse{}
	if err := c.post(ctx, "/auth/forgot-password", map[string]string{"email": email}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResetPassword completes the password recovery flow.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*MessageResponse, error) {
	out := &MessageResponse{}
	if err := c.post(ctx, "/auth/reset-password", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Chat sends a message to the portal assistant and returns its reply. The
// server rejects blank messages with a validation error.
func (c *Client) Chat(ctx context.Context, message string) (*ChatReply, error) {
	out := &ChatReply{}
	if err := c.post(ctx, "/chatbot/query", ChatQuery{Message: message}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- Client surface (/me/*) ----

func (c *Client) MyProfile(ctx context.Context) (*PatientProfile, error) {
	out := &PatientProfile{}
	if err := c.get(ctx, "/me/profile", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MyDevices(ctx context.Context) ([]Device, error) {
	out := &listResponse[Device]{}
	if err := c.get(ctx, "/me/devices", nil, out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) MyLatestReadings(ctx context.Context) (*LatestReadings, error) {
	out := &LatestReadings{}
	if err := c.get(ctx, "/me/readings/latest", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DateRangeParams narrows history queries.
type DateRangeParams struct {
	From  string
	To    string
	Limit int
}

func (p DateRangeParams) values() url.Values {
	q := url.Values{}
	if p.From != "" {
		q.Set("from", p.From)
	}
	if p.To != "" {
		q.Set("to", p.To)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

func (c *Client) MyReadings(ctx context.Context, params DateRangeParams) ([]Reading, error) {
	out := &listResponse[Reading]{}
	if err := c.get(ctx, "/me/readings", params.values(), out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// AlertParams narrows alert queries.
type AlertParams struct {
	Limit        int
	Acknowledged *bool
}

func (p AlertParams) values() url.Values {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Acknowledged != nil {
		q.Set("acknowledged", strconv.FormatBool(*p.Acknowledged))
	}
	return q
}

func (c *Client) MyAlerts(ctx context.Context, params AlertParams) ([]Alert, error) {
	out := &listResponse[Alert]{}
	if err := c.get(ctx, "/me/alerts", params.values(), out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ---- Admin surface (/admin/*) ----

func (c *Client) ListPatients(ctx context.Context) ([]PatientProfile, error) {
	out := &listResponse[PatientProfile]{}
	if err := c.get(ctx, "/admin/patients", nil, out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) GetPatient(ctx context.Context, patientID int64) (*PatientProfile, error) {
	out := &PatientProfile{}
	if err := c.get(ctx, fmt.Sprintf("/admin/patients/%d", patientID), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePatient(ctx context.Context, patient PatientCreate) (*PatientProfile, error) {
	out := &PatientProfile{}
	if err := c.post(ctx, "/admin/patients", patient, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdatePatient(ctx context.Context, patientID int64, patient PatientUpdate) (*PatientProfile, error) {
	out := &PatientProfile{}
	if err := c.put(ctx, fmt.Sprintf("/admin/patients/%d", patientID), patient, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeletePatient(ctx context.Context, patientID int64) error {
	return c.delete(ctx, fmt.Sprintf("/admin/patients/%d", patientID))
}

func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	out := &listResponse[Device]{}
	if err := c.get(ctx, "/admin/devices", nil, out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) CreateDevice(ctx context.Context, device DeviceCreate) (*Device, error) {
	out := &Device{}
	if err := c.post(ctx, "/admin/devices", device, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateDevice(ctx context.Context, deviceID int64, device DeviceUpdate) (*Device, error) {
	out := &Device{}
	if err := c.put(ctx, fmt.Sprintf("/admin/devices/%d", deviceID), device, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AssignDevice links a device to a patient; a nil patientID unassigns it.
func (c *Client) AssignDevice(ctx context.Context, deviceID int64, patientID *int64) (*Device, error) {
	out := &Device{}
	body := map[string]*int64{"patient_id": patientID}
	if err := c.post(ctx, fmt.Sprintf("/admin/devices/%d/assign", deviceID), body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteDevice(ctx context.Context, deviceID int64) error {
	return c.delete(ctx, fmt.Sprintf("/admin/devices/%d", deviceID))
}

func (c *Client) PatientAlerts(ctx context.Context, patientID int64, params AlertParams) ([]Alert, error) {
	out := &listResponse[Alert]{}
	path := fmt.Sprintf("/admin/patients/%d/alerts", patientID)
	if err := c.get(ctx, path, params.values(), out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) AcknowledgeAlert(ctx context.Context, alertID int64, notes string) (*Alert, error) {
	out := &Alert{}
	body := map[string]string{}
	if notes != "" {
		body["notes"] = notes
	}
	if err := c.post(ctx, fmt.Sprintf("/admin/alerts/%d/acknowledge", alertID), body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GlobalThresholds(ctx context.Context) ([]Threshold, error) {
	out := &listResponse[Threshold]{}
	if err := c.get(ctx, "/admin/thresholds/global", nil, out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) SetGlobalThreshold(ctx context.Context, metric string, update ThresholdUpdate) (*Threshold, error) {
	out := &Threshold{}
	if err := c.put(ctx, fmt.Sprintf("/admin/thresholds/global/%s", metric), update, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PatientThresholds(ctx context.Context, patientID int64) ([]Threshold, error) {
	out := &listResponse[Threshold]{}
	if err := c.get(ctx, fmt.Sprintf("/admin/patients/%d/thresholds", patientID), nil, out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) SetPatientThreshold(ctx context.Context, patientID int64, metric string, update ThresholdUpdate) (*Threshold, error) {
	out := &Threshold{}
	path := fmt.Sprintf("/admin/patients/%d/thresholds/%s", patientID, metric)
	if err := c.put(ctx, path, update, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeviceTelemetry lists telemetry rows for a device.
func (c *Client) DeviceTelemetry(ctx context.Context, deviceID int64, params DateRangeParams) ([]DeviceTelemetry, error) {
	out := &listResponse[DeviceTelemetry]{}
	path := fmt.Sprintf("/devices/%d/telemetry", deviceID)
	if err := c.get(ctx, path, params.values(), out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
