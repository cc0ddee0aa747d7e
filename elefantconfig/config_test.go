package elefantconfig

import "testing"

func TestPortString(t *testing.T) {
	cases := []struct {
		port uint16
		want string
	}{
		{0, "5432"},
		{5432, "5432"},
		{1, "1"},
		{65535, "65535"},
	}
	for _, c := range cases {
		if got := portString(c.port); got != c.want {
			t.Errorf("portString(%d) = %q, want %q", c.port, got, c.want)
		}
	}
}

func TestParsePort(t *testing.T) {
	cases := []struct {
		in   string
		want uint16
	}{
		{"5432", 5432},
		{"1", 1},
		{"not-a-port", 0},
		{"", 0},
	}
	for _, c := range cases {
		if got := parsePort(c.in); got != c.want {
			t.Errorf("parsePort(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestResolveFromServiceLeavesExplicitFieldsAlone(t *testing.T) {
	e := Endpoint{Host: "explicit-host"}
	e.ResolveFromService("") // empty service name is a no-op
	if e.Host != "explicit-host" {
		t.Errorf("ResolveFromService mutated Host with an empty service name: %q", e.Host)
	}
}

func TestDefaultRunOptions(t *testing.T) {
	opts := DefaultRunOptions()
	if opts.MaxParallelism != 1 {
		t.Errorf("MaxParallelism = %d, want 1", opts.MaxParallelism)
	}
	if opts.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want 3", opts.RetryAttempts)
	}
	if opts.Differential {
		t.Errorf("Differential defaults to true, want false")
	}
}
