package discovery

import (
	"reflect"
	"testing"
)

func TestMergeAddresses(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		extra    []string
		want     []string
	}{
		{"disjoint", []string{"10.0.0.1"}, []string{"10.0.0.2"}, []string{"10.0.0.1", "10.0.0.2"}},
		{"duplicate", []string{"10.0.0.1"}, []string{"10.0.0.1"}, []string{"10.0.0.1"}},
		{"empty existing", nil, []string{"10.0.0.1"}, []string{"10.0.0.1"}},
		{"empty extra", []string{"10.0.0.1"}, nil, []string{"10.0.0.1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeAddresses(tt.existing, tt.extra)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("mergeAddresses(%v, %v) = %v, want %v", tt.existing, tt.extra, got, tt.want)
			}
		})
	}
}
