// Package config handles application configuration loading and management.
package config

// Config holds all application settings.
type Config struct {
	Window      WindowConfig     `yaml:"window"`
	Shaders     ShaderConfig     `yaml:"shaders"`
	Logging     LoggingConfig    `yaml:"logging"`
	Screenshots ScreenshotConfig `yaml:"screenshots"`
}

// Platform backends.
const (
	BackendSDL  = "sdl"
	BackendGLFW = "glfw"
)

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
	Backend    string `yaml:"backend"` // "sdl" or "glfw"
}

// ShaderConfig holds shader source settings.
type ShaderConfig struct {
	Dir      string `yaml:"dir"` // Overrides the embedded sources when set
	Vertex   string `yaml:"vertex"`
	Fragment string `yaml:"fragment"`
	Debug    bool   `yaml:"debug"` // Log compiler and linker diagnostics
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ScreenshotConfig holds screenshot settings.
type ScreenshotConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:      "Template App",
			Width:      800,
			Height:     600,
			Fullscreen: false,
			VSync:      true,
			Backend:    BackendSDL,
		},
		Shaders: ShaderConfig{
			Dir:      "",
			Vertex:   "vertex.glsl",
			Fragment: "fragment.glsl",
			Debug:    true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Screenshots: ScreenshotConfig{
			Dir: "screenshots",
		},
	}
}
