package s3_test

import (
	"testing"

	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/storage/s3"
)

func TestEndpoint(t *testing.T) {
	cases := []struct {
		endpoint string
		useSSL   bool
		host     string
		secure   bool
		wantErr  bool
	}{
		{endpoint: "localhost:9000", host: "localhost:9000"},
		{endpoint: "minio.internal:9000/", useSSL: true, host: "minio.internal:9000", secure: true},
		{endpoint: "https://s3.example.com", host: "s3.example.com", secure: true},
		{endpoint: "http://minio:9000", host: "minio:9000"},
		{endpoint: "ftp://minio:21", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.endpoint, func(t *testing.T) {
			host, secure, err := s3.Endpoint(configs.S3Config{Endpoint: tc.endpoint, UseSSL: tc.useSSL})
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}

				return
			}

			if err != nil {
				t.Fatalf("endpoint: %v", err)
			}

			if host != tc.host || secure != tc.secure {
				t.Errorf("got (%q, %v), want (%q, %v)", host, secure, tc.host, tc.secure)
			}
		})
	}
}
