package mapdb

import (
	"bytes"
	"strings"
	"testing"

	"github.com/banshee-data/gridmap2d/internal/testutil"
)

func TestRunMigrateCommand(t *testing.T) {
	dbPath := testutil.TempDBPath(t)

	steps := []struct {
		args    []string
		wantErr bool
		want    string
	}{
		{[]string{"status"}, false, "Current version: 0"},
		{[]string{"up"}, false, "Current version: 2"},
		{[]string{"down"}, false, "Current version: 1"},
		{[]string{"version", "2"}, false, "Migrated to version 2"},
		{[]string{"version"}, false, "Latest version: 2"},
		{[]string{"force", "1"}, false, "Forced version to 1"},
		{[]string{"force"}, true, ""},
		{[]string{"force", "x"}, true, ""},
		{[]string{"version", "abc"}, true, ""},
		{[]string{"bogus"}, true, "Usage: gridmap migrate"},
		{[]string{"help"}, false, "Usage: gridmap migrate"},
		{nil, true, "Usage: gridmap migrate"},
	}

	for _, s := range steps {
		var out bytes.Buffer
		err := RunMigrateCommand(s.args, dbPath, &out)
		if s.wantErr && err == nil {
			t.Errorf("%v: expected error", s.args)
		}
		if !s.wantErr && err != nil {
			t.Errorf("%v: unexpected error: %v", s.args, err)
		}
		if s.want != "" && !strings.Contains(out.String(), s.want) {
			t.Errorf("%v: expected output to contain %q, got:\n%s", s.args, s.want, out.String())
		}
	}
}
