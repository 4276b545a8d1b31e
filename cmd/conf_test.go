package main

import (
	"os"
	"path"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/scitags/genetlinkd/api"
	"github.com/scitags/genetlinkd/families/ctrl"
	"github.com/scitags/genetlinkd/families/echo"
	"github.com/scitags/genetlinkd/genl"
	"github.com/scitags/genetlinkd/pipe"
	"github.com/scitags/genetlinkd/transport"
)

func TestYAMLAndJSON(t *testing.T) {
	testDir := "testdata/yaml_json"
	d, err := os.ReadDir(testDir)
	if err != nil {
		t.Fatalf("error reading testdata: %v", err)
	}

	confs := []*Config{}
	for _, n := range d {
		c, err := ReadConf(path.Join(testDir, n.Name()))
		if err != nil {
			t.Fatalf("error parsing %q: %v", n.Name(), err)
		}
		t.Logf("%s:\n%s", n.Name(), c)
		confs = append(confs, c)
	}

	if len(confs) != 2 {
		t.Fatalf("expected two configurations but got %d", len(confs))
	}

	if diff := cmp.Diff(confs[0], confs[1]); diff != "" {
		t.Errorf("configurations are not equal (-json +yaml):\n%s", diff)
	}
}

func TestDefaults(t *testing.T) {
	withEcho := DefaultConf()
	withEcho.Families.Echo = &echo.Config{Log: true, Name: echo.DefaultName, Version: 1}

	tests := map[string]*Config{
		"empty.yaml":   DefaultConf(),
		"minimal.yaml": withEcho,
		"populated.yaml": {
			Transport:  &transport.Config{Log: false, QueueLength: 8},
			Dispatcher: &genl.Config{Log: true, ReplyBufferSize: 4096, DumpBufferSize: 4096},
			Families: &FamiliesConfig{
				Ctrl: &ctrl.Config{Log: false},
				Echo: &echo.Config{Log: true, Name: echo.DefaultName, ID: 32, Version: 1},
			},
			Services: &ServicesConfig{
				Api: &api.Config{Log: true, BindAddress: "0.0.0.0", BindPort: 10515},
				Np:  &pipe.Config{Log: true, MaxReaders: 2, BuffSize: 1024, PipePath: "genetlinkd.np"},
			},
		},
	}

	testDir := "testdata/conf"
	d, err := os.ReadDir(testDir)
	if err != nil {
		t.Fatalf("error reading configuration directory: %v", err)
	}

	for _, f := range d {
		want, ok := tests[f.Name()]
		if !ok {
			t.Fatalf("got no want for %q", f.Name())
		}

		got, err := ReadConf(path.Join(testDir, f.Name()))
		if err != nil {
			t.Fatalf("error parsing %q: %v", f.Name(), err)
		}

		t.Logf("\n%s", got)

		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%q: mismatch (-want +got):\n%s", f.Name(), diff)
		}
	}
}

func TestDefaultConf(t *testing.T) {
	c := DefaultConf()

	want := &Config{
		Transport:  &transport.Config{Log: true, QueueLength: 64},
		Dispatcher: &genl.Config{Log: true, ReplyBufferSize: 8192, DumpBufferSize: 64 * 1024},
		Families:   &FamiliesConfig{Ctrl: &ctrl.Config{Log: true}},
		Services:   &ServicesConfig{},
	}

	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalid(t *testing.T) {
	testDir := "testdata/invalid"
	d, err := os.ReadDir(testDir)
	if err != nil {
		t.Fatalf("error reading configuration directory: %v", err)
	}

	for _, f := range d {
		if _, err := ReadConf(path.Join(testDir, f.Name())); err == nil {
			t.Errorf("%q: got no error", f.Name())
		} else {
			t.Logf("%q: %v", f.Name(), err)
		}
	}
}

func TestReadConfMissing(t *testing.T) {
	if _, err := ReadConf("testdata/nope.yaml"); err == nil {
		t.Errorf("got no error reading a missing file")
	}
}
