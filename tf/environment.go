package tf

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	mu       sync.Mutex
	refCount int
	tfLib    uintptr
	libPath  string
	logger   = zap.NewNop()
)

// SetSharedLibraryPath sets the path to the TensorFlow C shared library.
// It must be called before InitializeEnvironment and cannot change while the
// environment is live.
func SetSharedLibraryPath(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if refCount > 0 {
		return fmt.Errorf("cannot change library path after environment is initialized")
	}
	libPath = path
	return nil
}

// SetLogger installs a zap logger for lifecycle diagnostics. Passing nil
// restores the no-op logger. Errors are always returned to callers, never
// routed through the logger.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()

	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

func currentLogger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// InitializeEnvironment loads the TensorFlow shared library and registers
// its C API entry points. Calls are reference counted; each one must be
// paired with a DestroyEnvironment.
func InitializeEnvironment() error {
	mu.Lock()
	defer mu.Unlock()

	if refCount > 0 {
		refCount++
		return nil
	}

	if libPath == "" {
		return fmt.Errorf("library path not set, call SetSharedLibraryPath first")
	}

	lib, err := loadLibrary(libPath)
	if err != nil || lib == 0 {
		return fmt.Errorf("failed to load TensorFlow library %q: %w", libPath, err)
	}

	if err := registerNativeAPI(lib); err != nil {
		clearNativeAPI()
		_ = closeLibrary(lib)
		return err
	}

	tfLib = lib
	refCount = 1
	logger.Debug("tensorflow runtime loaded",
		zap.String("path", libPath),
		zap.String("version", tfVersionFunc()))
	return nil
}

// DestroyEnvironment decrements the reference count and unloads the library
// when it reaches zero. Handles to native objects must not be used after the
// final destroy.
func DestroyEnvironment() error {
	mu.Lock()
	defer mu.Unlock()

	if refCount == 0 {
		return nil
	}

	refCount--
	if refCount > 0 {
		return nil
	}

	clearNativeAPI()
	lib := tfLib
	tfLib = 0
	logger.Debug("tensorflow runtime unloaded", zap.String("path", libPath))
	if lib != 0 {
		return closeLibrary(lib)
	}
	return nil
}

// IsInitialized reports whether the TensorFlow environment is live.
func IsInitialized() bool {
	mu.Lock()
	defer mu.Unlock()
	return refCount > 0
}

// GetVersionString returns the TF_Version string of the loaded runtime, or
// "0.0.0-dev" before initialization.
func GetVersionString() string {
	if tfVersionFunc == nil {
		return "0.0.0-dev"
	}
	return tfVersionFunc()
}
