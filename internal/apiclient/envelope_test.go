package apiclient_test

import (
	"testing"

	"github.com/edumarket/storefront/internal/apiclient"
)

func TestParseEnvelope(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantOK  bool
		wantErr bool
		wantMsg string
	}{
		{name: "enveloped success", raw: `{"success":true,"code":200,"message":"ok","data":{}}`, wantOK: true, wantMsg: "ok"},
		{name: "enveloped failure", raw: `{"success":false,"message":"bad"}`, wantOK: true, wantMsg: "bad"},
		{name: "plain object", raw: `{"id":1}`, wantOK: false},
		{name: "array", raw: `[1,2]`, wantOK: false},
		{name: "scalar", raw: `"hello"`, wantOK: false},
		{name: "invalid json", raw: `{oops`, wantErr: true},
		{name: "success not bool", raw: `{"success":"yes"}`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, ok, err := apiclient.ParseEnvelope([]byte(tc.raw))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && env.Message != tc.wantMsg {
				t.Errorf("message = %q, want %q", env.Message, tc.wantMsg)
			}
		})
	}
}
