package molt

import "fmt"

func errInvalidLogLevel(value string) error {
	return fmt.Errorf("invalid log level: %q", value)
}
