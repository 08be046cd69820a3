package authz

import (
	"reflect"
	"testing"
)

func TestParseTargets(t *testing.T) {
	tests := []struct {
		name string
		path string
		want []string
	}{
		{
			name: "single target",
			path: "/trigger/jsp",
			want: []string{"jsp"},
		},
		{
			name: "multiple targets preserve order",
			path: "/trigger/jsp/zbee",
			want: []string{"jsp", "zbee"},
		},
		{
			name: "duplicates are kept",
			path: "/trigger/jsp/jsp",
			want: []string{"jsp", "jsp"},
		},
		{
			name: "path is lower-cased",
			path: "/Trigger/JSP",
			want: []string{"jsp"},
		},
		{
			name: "leading segments before marker ignored",
			path: "/api/v1/trigger/jsp",
			want: []string{"jsp"},
		},
		{
			name: "repeated slashes filtered",
			path: "/trigger//jsp///zbee",
			want: []string{"jsp", "zbee"},
		},
		{
			name: "trailing slash",
			path: "/trigger/jsp/",
			want: []string{"jsp"},
		},
		{
			name: "no marker",
			path: "/jsp/zbee",
			want: nil,
		},
		{
			name: "marker is last segment",
			path: "/trigger",
			want: nil,
		},
		{
			name: "marker followed only by slashes",
			path: "/trigger///",
			want: nil,
		},
		{
			name: "empty path",
			path: "",
			want: nil,
		},
		{
			name: "only targets after the first marker count as marker",
			path: "/trigger/trigger/jsp",
			want: []string{"trigger", "jsp"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTargets(tt.path)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTargets(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParseTargetsIdempotent(t *testing.T) {
	path := "/Trigger/JSP//zbee/"
	first := ParseTargets(path)
	second := ParseTargets(path)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("ParseTargets is not idempotent: %v vs %v", first, second)
	}
}
