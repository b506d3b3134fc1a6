package llm

import (
	"net/http"
	"net/url"
	"testing"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := newProxyFunc("http://proxy:8080", "http://secure-proxy:8443", "localhost, .internal.example, 10.0.0.0/8")

	cases := []struct {
		target string
		want   string
	}{
		{"http://api.example.com/v1", "http://proxy:8080"},
		{"https://api.example.com/v1", "http://secure-proxy:8443"},
		{"http://localhost:11434/api/chat", ""},
		{"https://llm.internal.example/v1", ""},
		{"http://10.1.2.3:11434/api/chat", ""},
	}
	for _, tc := range cases {
		u, _ := url.Parse(tc.target)
		got, err := proxy(&http.Request{URL: u})
		if err != nil {
			t.Fatalf("%s: %v", tc.target, err)
		}
		if tc.want == "" {
			if got != nil {
				t.Errorf("%s: expected direct connection, got %s", tc.target, got)
			}
			continue
		}
		if got == nil || got.String() != tc.want {
			t.Errorf("%s: expected %s, got %v", tc.target, tc.want, got)
		}
	}
}

func TestNewProxyFunc_FallsBackToEnvironment(t *testing.T) {
	proxy := newProxyFunc("", "", "")
	if proxy == nil {
		t.Fatal("expected a proxy func")
	}
}
