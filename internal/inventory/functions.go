package inventory

import (
	"database/sql/driver"
	"fmt"
	"net/netip"

	"modernc.org/sqlite"
)

func init() {
	// IP address ordering sorts on INET_ATON(column).
	sqlite.MustRegisterDeterministicScalarFunction("INET_ATON", 1, inetAton)
}

// inetAton converts a dotted IPv4 address to its integer value. Anything
// that is not an IPv4 address yields NULL, so it sorts first.
func inetAton(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("INET_ATON expects 1 argument")
	}
	s, ok := driverValueToString(args[0])
	if !ok {
		return nil, nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return nil, nil
	}
	b := addr.As4()
	return int64(b[0])<<24 | int64(b[1])<<16 | int64(b[2])<<8 | int64(b[3]), nil
}

func driverValueToString(v driver.Value) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case []byte:
		return string(val), true
	default:
		return fmt.Sprint(val), true
	}
}
