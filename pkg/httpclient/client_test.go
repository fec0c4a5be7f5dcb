package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

// testRequest はテストサーバーが受け取ったリクエスト情報を保持する構造体。
type testRequest struct {
	// Method はHTTPメソッド。
	Method string
	// Path はリクエストパス。
	Path string
	// Query はクエリ文字列。
	Query string
	// Body はリクエストボディ。
	Body []byte
	// Headers はリクエストヘッダー。
	Headers http.Header
}

// testPayload はテスト用のリクエスト/レスポンスペイロード。
type testPayload struct {
	// Name はテスト用の名前フィールド。
	Name string `json:"name"`
	// Value はテスト用の値フィールド。
	Value int `json:"value"`
}

// newRecordingServer は受け取ったリクエストを記録してpayloadを返すテストサーバーを生成する。
func newRecordingServer(t *testing.T, received *testRequest, payload testPayload) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Method = r.Method
		received.Path = r.URL.Path
		received.Query = r.URL.RawQuery
		received.Body, _ = io.ReadAll(r.Body)
		received.Headers = r.Header.Clone()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// TestNew はNew関数でクライアントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("クライアントが正常に生成されること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080")
		if client == nil {
			t.Fatal("New()がnilを返した")
		}
		if client.baseURL != "http://localhost:8080" {
			t.Errorf("baseURL = %q, want %q", client.baseURL, "http://localhost:8080")
		}
		if client.httpClient == nil {
			t.Fatal("httpClientがnil")
		}
	})

	t.Run("タイムアウトがデフォルトで30秒に設定されていること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080")
		if client.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want 30s", client.httpClient.Timeout)
		}
	})

	t.Run("WithTimeoutでタイムアウトを変更できること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080", WithTimeout(5*time.Second))
		if client.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", client.httpClient.Timeout)
		}
	})

	t.Run("WithTimeoutに0以下を渡してもデフォルトのままであること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080", WithTimeout(0))
		if client.httpClient.Timeout != DefaultTimeout {
			t.Errorf("Timeout = %v, want %v", client.httpClient.Timeout, DefaultTimeout)
		}
	})
}

// TestPostJSON はPostJSON関数を検証する。
func TestPostJSON(t *testing.T) {
	t.Parallel()

	t.Run("正常にPOSTリクエストを送信してレスポンスを取得できること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := newRecordingServer(t, &received, testPayload{Name: "response", Value: 200})

		client := New(ts.URL)
		var result testPayload
		err := client.PostJSON(context.Background(), "/auth/v1/token", testPayload{Name: "request", Value: 100}, &result)
		if err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}

		if received.Method != http.MethodPost {
			t.Errorf("Method = %q, want %q", received.Method, http.MethodPost)
		}
		if received.Path != "/auth/v1/token" {
			t.Errorf("Path = %q, want %q", received.Path, "/auth/v1/token")
		}

		var sent testPayload
		if err := json.Unmarshal(received.Body, &sent); err != nil {
			t.Fatalf("リクエストボディのパースに失敗: %v", err)
		}
		if sent.Name != "request" || sent.Value != 100 {
			t.Errorf("送信ボディ = %+v", sent)
		}
		if got := received.Headers.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want %q", got, "application/json")
		}
		if result.Name != "response" || result.Value != 200 {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("resultがnilの場合でもエラーにならないこと", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer ts.Close()

		client := New(ts.URL)
		if err := client.PostJSON(context.Background(), "/auth/v1/logout", nil, nil); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
	})

	t.Run("キャンセルされたコンテキストでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := newRecordingServer(t, &received, testPayload{Name: "response", Value: 1})

		client := New(ts.URL)
		ctx, cancel := context.WithCancel(context.Background())
		cancel() // 即座にキャンセル

		var result testPayload
		if err := client.PostJSON(ctx, "/x", testPayload{}, &result); err == nil {
			t.Fatal("PostJSON()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("シリアライズできないボディでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		client := New("http://127.0.0.1:1")
		if err := client.PostJSON(context.Background(), "/x", make(chan int), nil); err == nil {
			t.Fatal("PostJSON()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestGetJSON はGetJSON関数を検証する。
func TestGetJSON(t *testing.T) {
	t.Parallel()

	t.Run("正常にGETリクエストを送信してレスポンスを取得できること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := newRecordingServer(t, &received, testPayload{Name: "get-response", Value: 42})

		client := New(ts.URL)
		var result testPayload
		if err := client.GetJSON(context.Background(), "/auth/v1/user", &result); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}

		if received.Method != http.MethodGet {
			t.Errorf("Method = %q, want %q", received.Method, http.MethodGet)
		}
		if len(received.Body) != 0 {
			t.Errorf("GETリクエストにボディが含まれている: %q", string(received.Body))
		}
		if got := received.Headers.Get("Content-Type"); got != "" {
			t.Errorf("ボディの無いリクエストにContent-Typeが設定されている: %q", got)
		}
		if result.Name != "get-response" || result.Value != 42 {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("不正なJSONレスポンスでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{invalid json}`))
		}))
		defer ts.Close()

		var result testPayload
		err := New(ts.URL).GetJSON(context.Background(), "/x", &result)
		if err == nil {
			t.Fatal("GetJSON()がエラーを返すべきだが、nilが返った")
		}
		var se *StatusError
		if errors.As(err, &se) {
			t.Error("デシリアライズ失敗がStatusErrorとして返った")
		}
	})

	t.Run("接続できないサーバーに対してエラーが返ること", func(t *testing.T) {
		t.Parallel()

		var result testPayload
		if err := New("http://127.0.0.1:1").GetJSON(context.Background(), "/x", &result); err == nil {
			t.Fatal("GetJSON()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestStatusError は2xx以外の応答の扱いを検証する。
func TestStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		clientError bool
	}{
		{"401はクライアントエラーとして返ること", http.StatusUnauthorized, true},
		{"404はクライアントエラーとして返ること", http.StatusNotFound, true},
		{"500はクライアントエラーではないこと", http.StatusInternalServerError, false},
		{"503はクライアントエラーではないこと", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"msg":"nope"}`))
			}))
			defer ts.Close()

			var result testPayload
			err := New(ts.URL).GetJSON(context.Background(), "/x", &result)

			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("StatusErrorが返るべきだが %v が返った", err)
			}
			if se.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", se.StatusCode, tt.status)
			}
			if se.ClientError() != tt.clientError {
				t.Errorf("ClientError() = %v, want %v", se.ClientError(), tt.clientError)
			}
			if se.Body != `{"msg":"nope"}` {
				t.Errorf("Body = %q", se.Body)
			}
		})
	}
}

// TestRequestOptions はヘッダーとクエリの付与を検証する。
func TestRequestOptions(t *testing.T) {
	t.Parallel()

	t.Run("デフォルトヘッダーとBearerトークンが送信されること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := newRecordingServer(t, &received, testPayload{})

		client := New(ts.URL, WithDefaultHeader("apikey", "service-key"))
		var result testPayload
		if err := client.GetJSON(context.Background(), "/auth/v1/user", &result, WithBearer("abc.def.ghi")); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}

		if got := received.Headers.Get("apikey"); got != "service-key" {
			t.Errorf("apikey = %q, want %q", got, "service-key")
		}
		if got := received.Headers.Get("Authorization"); got != "Bearer abc.def.ghi" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer abc.def.ghi")
		}
	})

	t.Run("リクエストごとのヘッダーがデフォルトより優先されること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := newRecordingServer(t, &received, testPayload{})

		client := New(ts.URL, WithDefaultHeader("apikey", "default"))
		var result testPayload
		if err := client.GetJSON(context.Background(), "/x", &result, WithHeader("apikey", "override")); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}
		if got := received.Headers.Get("apikey"); got != "override" {
			t.Errorf("apikey = %q, want %q", got, "override")
		}
	})

	t.Run("クエリパラメータが送信されること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := newRecordingServer(t, &received, testPayload{})

		var result testPayload
		err := New(ts.URL).PostJSON(context.Background(), "/auth/v1/token", testPayload{}, &result,
			WithQuery(url.Values{"grant_type": {"pkce"}}))
		if err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if received.Query != "grant_type=pkce" {
			t.Errorf("Query = %q, want %q", received.Query, "grant_type=pkce")
		}
	})
}
