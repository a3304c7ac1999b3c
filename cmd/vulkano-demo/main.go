// Command vulkano-demo opens a window and renders instanced quads through the
// vulkano frame engine. Without shaders it only clears the swapchain.
package main

import (
	"os"
	"runtime"

	"github.com/andewx/vulkano"
	"github.com/andewx/vulkano/glfwsurface"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spf13/cobra"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

func init() {
	// GLFW and the presentation engine want the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := newRootCmd(newOptions()).Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the values bound to the command line flags.
type options struct {
	configPath string
	verbose    bool
	flags      demoConfig
}

func newOptions() *options {
	return &options{flags: defaultDemoConfig()}
}

func newRootCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "vulkano-demo",
		Short:        "Render instanced quads with the vulkano frame engine",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config(cmd)
			if err != nil {
				return err
			}
			level := slog.LevelInfo
			if o.verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			return run(cfg, log)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.configPath, "config", "c", "", "TOML config file")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	f.IntVar(&o.flags.Width, "width", o.flags.Width, "window width")
	f.IntVar(&o.flags.Height, "height", o.flags.Height, "window height")
	f.Uint32Var(&o.flags.ImageCount, "images", o.flags.ImageCount, "swapchain image count")
	f.BoolVar(&o.flags.Validation, "validation", false, "enable the Khronos validation layer")
	f.BoolVar(&o.flags.DebugReport, "debug-report", false, "log validation messages through a debug report callback")
	f.StringVar(&o.flags.VertexShader, "vert", "", "vertex shader SPIR-V file")
	f.StringVar(&o.flags.FragmentShader, "frag", "", "fragment shader SPIR-V file")
	f.IntVar(&o.flags.Frames, "frames", 0, "stop after this many frames, 0 runs until closed")
	f.IntVar(&o.flags.Instances, "instances", o.flags.Instances, "number of quads")
	return cmd
}

// config loads the file given with --config and applies explicit flags.
func (o *options) config(cmd *cobra.Command) (demoConfig, error) {
	cfg, err := loadDemoConfig(o.configPath)
	if err != nil {
		return cfg, err
	}
	applyFlags(cmd, &cfg, &o.flags)
	return cfg, cfg.validate()
}

// applyFlags copies flags the user set explicitly over the file config.
func applyFlags(cmd *cobra.Command, cfg, flags *demoConfig) {
	set := cmd.Flags().Changed
	if set("width") {
		cfg.Width = flags.Width
	}
	if set("height") {
		cfg.Height = flags.Height
	}
	if set("images") {
		cfg.ImageCount = flags.ImageCount
	}
	if set("validation") {
		cfg.Validation = flags.Validation
	}
	if set("debug-report") {
		cfg.DebugReport = flags.DebugReport
	}
	if set("vert") {
		cfg.VertexShader = flags.VertexShader
	}
	if set("frag") {
		cfg.FragmentShader = flags.FragmentShader
	}
	if set("frames") {
		cfg.Frames = flags.Frames
	}
	if set("instances") {
		cfg.Instances = flags.Instances
	}
}

func run(cfg demoConfig, log *slog.Logger) error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "glfw init")
	}
	defer glfw.Terminate()
	if err := glfwsurface.Init(); err != nil {
		return err
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return errors.Wrap(err, "create window")
	}
	defer window.Destroy()

	vcfg := vulkano.Config{
		AppName:            cfg.Title,
		Validation:         cfg.Validation,
		DebugReport:        cfg.DebugReport,
		Layers:             cfg.Layers,
		InstanceExtensions: cfg.InstanceExtensions,
		DeviceExtensions:   cfg.DeviceExtensions,
		RenderPasses:       []vk.RenderPassCreateInfo{vulkano.ColorDepthRenderPass(vk.FormatUndefined)},
		Timeout:            cfg.timeout(),
		Logger:             log,
	}
	glfwsurface.Configure(&vcfg, window)

	drawing := cfg.VertexShader != ""
	if drawing {
		vert, err := readShader(cfg.VertexShader)
		if err != nil {
			return err
		}
		frag, err := readShader(cfg.FragmentShader)
		if err != nil {
			return err
		}
		vcfg.PipelineLayouts = []vulkano.PipelineLayoutConfig{{PushConstantRanges: pushConstantRanges()}}
		vcfg.Pipelines = []vulkano.PipelineConfig{pipelineConfig(vert, frag)}
	}

	ctx, err := vulkano.New(vcfg)
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	res := ctx.Resources()
	if err := ctx.ConfigureSwapchain(res.RenderPasses[0], cfg.ImageCount); err != nil {
		return err
	}

	var sc *scene
	if drawing {
		if sc, err = newScene(ctx, cfg.Instances); err != nil {
			return err
		}
		defer func() {
			ctx.WaitIdle()
			sc.destroy()
		}()
	}

	var angle float32
	for !window.ShouldClose() {
		glfw.PollEvents()
		if cfg.Frames > 0 && ctx.FrameNumber() >= uint64(cfg.Frames) {
			break
		}
		frame, err := ctx.BeginFrame(cfg.Clear)
		switch vulkano.KindOf(err) {
		case vulkano.KindNone:
		case vulkano.KindMinimized:
			glfw.WaitEvents()
			continue
		default:
			return err
		}
		if sc != nil {
			sc.record(ctx, frame, res.Pipelines[0], angle)
			angle += 0.01
		}
		if err := ctx.SubmitFrame(frame, vulkano.SubmitSync{}); err != nil {
			return err
		}
	}
	log.Info("vulkan: demo finished", slog.Uint64("frames", ctx.FrameNumber()))
	return ctx.WaitIdle()
}
