package compute

import "runtime"

const (
	// DefaultThreadsPerBlock mirrors a warp: 32x32 cells per tile.
	DefaultThreadsPerBlock = 32
)

// LaunchConfig is the launch geometry for grid kernels. The engine never
// computes it; callers inject it, usually from Discover.
type LaunchConfig struct {
	ThreadsPerBlock int `yaml:"threads_per_block"`
	Workers         int `yaml:"workers"`
}

// Discover inspects the host and returns a launch geometry with one
// worker per CPU.
func Discover() LaunchConfig {
	return LaunchConfig{
		ThreadsPerBlock: DefaultThreadsPerBlock,
		Workers:         runtime.NumCPU(),
	}
}

func (c LaunchConfig) normalized() LaunchConfig {
	if c.ThreadsPerBlock <= 0 {
		c.ThreadsPerBlock = DefaultThreadsPerBlock
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return c
}
