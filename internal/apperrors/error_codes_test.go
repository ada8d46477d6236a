package apperrors

import "testing"

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   Kind
	}{
		{name: "no response", status: 0, want: KindNetwork},
		{name: "bad request", status: 400, want: KindValidation},
		{name: "unprocessable", status: 422, want: KindValidation},
		{name: "unauthorized", status: 401, want: KindAuthentication},
		{name: "forbidden", status: 403, want: KindAuthorization},
		{name: "not found", status: 404, want: KindNotFound},
		{name: "internal", status: 500, want: KindServer},
		{name: "unavailable", status: 503, want: KindServer},
		{name: "teapot", status: 418, want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindForStatus(tt.status); got != tt.want {
				t.Errorf("KindForStatus(%d) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}
