package application

import "testing"

func TestValidationErrorMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "empty", err: &ValidationError{}, want: "validation failed"},
		{
			name: "fields sorted",
			err:  &ValidationError{FieldErrors: map[string]string{"income": "x", "clock_out": "y", "break_end": "z"}},
			want: "validation failed: break_end, clock_out, income",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.err.Error(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestValidationErrorAddKeepsFirstMessage(t *testing.T) {
	t.Parallel()

	vErr := &ValidationError{}
	if vErr.HasErrors() {
		t.Fatalf("expected no errors before add")
	}
	vErr.add("clock_out", "clock out is required")
	vErr.add("clock_out", "clock out must be after clock in")

	if !vErr.HasErrors() {
		t.Fatalf("expected HasErrors after add")
	}
	if got := vErr.FieldErrors["clock_out"]; got != "clock out is required" {
		t.Fatalf("expected first message to be kept, got %q", got)
	}
}
