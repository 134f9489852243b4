package config

import "os"

// OSInterface abstracts the host environment so config parsing can be
// tested without the real filesystem or process env.
type OSInterface interface {
	Getenv(key string) string
	Environ() []string
	Stat(name string) (os.FileInfo, error)
	ReadFile(filename string) ([]byte, error)
}

var defaultOS = OSInterface(realOS{})

type realOS struct{}

func (realOS) Getenv(key string) string                 { return os.Getenv(key) }
func (realOS) Environ() []string                        { return os.Environ() }
func (realOS) Stat(name string) (os.FileInfo, error)    { return os.Stat(name) }
func (realOS) ReadFile(filename string) ([]byte, error) { return os.ReadFile(filename) }
