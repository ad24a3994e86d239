package remo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		AccessToken: "test-token",
		BaseURL:     baseURL,
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return client
}

func TestDevicesSendsBearerToken(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[{"id":"dev-1","name":"Living room","firmware_version":"Remo/1.0.62"}]`))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)
	devices, err := client.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices error: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if len(devices) != 1 || devices[0].ID != "dev-1" {
		t.Fatalf("unexpected devices: %+v", devices)
	}
}

func TestAppliancesDecodesPartialRecords(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":"ac-1","type":"AC","nickname":"Bedroom","device":{"id":"dev-1"},
			 "settings":{"temp":"24","mode":"cool","vol":"auto","dir":"swing","button":""}},
			{"id":"ir-1","type":"IR","nickname":"Fan","device":{"id":"dev-1"}}
		]`))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)
	appliances, err := client.Appliances(context.Background())
	if err != nil {
		t.Fatalf("Appliances error: %v", err)
	}
	if len(appliances) != 2 {
		t.Fatalf("expected 2 appliances, got %d", len(appliances))
	}
	if appliances[0].Settings == nil || appliances[0].Settings.Temp != "24" {
		t.Fatalf("unexpected settings: %+v", appliances[0].Settings)
	}
	if appliances[1].Settings != nil || appliances[1].Aircon != nil {
		t.Fatalf("expected bare IR appliance, got %+v", appliances[1])
	}
}

func TestUnauthorizedMapsToAuthError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)
	_, err := client.Devices(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestServerErrorMapsToResponseError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)
	_, err := client.Devices(context.Background())

	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("expected ResponseError, got %v", err)
	}
	if respErr.StatusCode != http.StatusInternalServerError || respErr.Body != "boom" {
		t.Fatalf("unexpected response error: %+v", respErr)
	}
}

func TestMalformedBodyMapsToResponseError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)
	_, err := client.Devices(context.Background())

	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("expected ResponseError, got %v", err)
	}
}

func TestSlowServerMapsToTimeoutError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("[]"))
	}))
	defer ts.Close()

	client, err := NewClient(Config{
		AccessToken:    "test-token",
		BaseURL:        ts.URL,
		RequestTimeout: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	_, err = client.Devices(context.Background())
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
}

func TestUnreachableServerMapsToConnectionError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	addr := ts.URL
	ts.Close()

	client := newTestClient(t, addr)
	_, err := client.Devices(context.Background())

	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
}

func TestSendAirconSettingsPostsForm(t *testing.T) {
	var (
		gotMethod      string
		gotPath        string
		gotContentType string
		gotForm        url.Values
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		_ = r.ParseForm()
		gotForm = r.PostForm
		_, _ = w.Write([]byte(`{"temp":"24","mode":"cool","vol":"auto","dir":"swing","button":""}`))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)
	settings, err := client.SendAirconSettings(context.Background(), "ac-1", map[string]string{
		"operation_mode": "cool",
		"temperature":    "24",
	})
	if err != nil {
		t.Fatalf("SendAirconSettings error: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Fatalf("unexpected method: %s", gotMethod)
	}
	if gotPath != "/appliances/ac-1/aircon_settings" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Fatalf("unexpected content type: %s", gotContentType)
	}
	if gotForm.Get("operation_mode") != "cool" || gotForm.Get("temperature") != "24" {
		t.Fatalf("unexpected form: %v", gotForm)
	}
	if settings.Mode != "cool" || settings.Temp != "24" {
		t.Fatalf("unexpected settings: %+v", settings)
	}
}

func TestSendAirconSettingsValidatesInput(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Errorf("request should not reach the server")
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)

	var validationErr *ValidationError
	if _, err := client.SendAirconSettings(context.Background(), "", map[string]string{"temperature": "24"}); !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for empty id, got %v", err)
	}
	if _, err := client.SendAirconSettings(context.Background(), "ac-1", nil); !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for empty params, got %v", err)
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(Config{})
	if err == nil {
		t.Fatalf("expected error for missing token")
	}
}
