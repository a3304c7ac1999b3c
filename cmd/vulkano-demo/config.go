package main

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

// demoConfig is the optional TOML file read with --config. Flags given on
// the command line win over the file.
type demoConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`

	ImageCount  uint32 `toml:"image_count"`
	Validation  bool   `toml:"validation"`
	DebugReport bool   `toml:"debug_report"`

	Layers             []string `toml:"layers"`
	InstanceExtensions []string `toml:"instance_extensions"`
	DeviceExtensions   []string `toml:"device_extensions"`

	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`

	// Frames stops the demo after this many submitted frames. Zero runs
	// until the window closes.
	Frames    int        `toml:"frames"`
	Instances int        `toml:"instances"`
	Clear     [4]float32 `toml:"clear"`
	TimeoutMS int        `toml:"timeout_ms"`
}

func defaultDemoConfig() demoConfig {
	return demoConfig{
		Title:      "vulkano",
		Width:      800,
		Height:     600,
		ImageCount: 3,
		Instances:  16,
		Clear:      [4]float32{0.05, 0.05, 0.08, 1.0},
		TimeoutMS:  int(5 * time.Second / time.Millisecond),
	}
}

func loadDemoConfig(path string) (demoConfig, error) {
	cfg := defaultDemoConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "open config")
	}
	defer f.Close()
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "decode %s", path)
	}
	return cfg, cfg.validate()
}

func (c *demoConfig) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Newf("window size %dx%d must be positive", c.Width, c.Height)
	}
	if (c.VertexShader == "") != (c.FragmentShader == "") {
		return errors.New("vertex_shader and fragment_shader must be given together")
	}
	if c.Instances < 1 {
		return errors.Newf("instances must be at least 1, got %d", c.Instances)
	}
	return nil
}

func (c *demoConfig) timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
