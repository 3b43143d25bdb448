package dockerx

import "testing"

func TestContainerName(t *testing.T) {
	tests := []struct {
		project, service, want string
	}{
		{"stack", "backend", "stack-backend-1"},
		{"crm", "db", "crm-db-1"},
	}
	for _, tt := range tests {
		if got := ContainerName(tt.project, tt.service); got != tt.want {
			t.Errorf("ContainerName(%q, %q) = %q, want %q", tt.project, tt.service, got, tt.want)
		}
	}
}
