package sampling

import "fmt"

// ConfigurationError reports an invalid engine configuration. It is always
// detected before any sampling starts and the process exits nonzero.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("sampling: invalid configuration: %s: %s", e.Param, e.Reason)
}

// DeviceError reports a device initialization or transfer failure. Device
// errors are fatal and never retried: partial device state cannot be
// safely resumed.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("sampling: device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
