package zone

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// NextSerial returns the next zone serial of the form YYYYMMDDNN, where
// NN counts issues within the day. State persists in <dir>/<zone>.serial
// so serials stay monotonic across restarts. The state file is created
// owner-read/write only.
func NextSerial(dir, zone string) (uint32, error) {
	path := filepath.Join(dir, zone+".serial")
	day := time.Now().Format("20060102")

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		old := unix.Umask(0o177)
		err = os.WriteFile(path, []byte(day+" 0"), 0o666)
		unix.Umask(old)
		if err != nil {
			return 0, fmt.Errorf("create serial state %s: %w", path, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read serial state %s: %w", path, err)
	}
	lastDay, lastID, err := parseSerialState(string(data))
	if err != nil {
		return 0, fmt.Errorf("serial state %s: %w", path, err)
	}

	id := 0
	if lastDay == day {
		id = lastID + 1
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%s %d", day, id)), 0o600); err != nil {
		return 0, fmt.Errorf("write serial state %s: %w", path, err)
	}

	serial, err := strconv.ParseUint(fmt.Sprintf("%s%02d", day, id), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("serial overflow for %s: %w", day, err)
	}
	return uint32(serial), nil
}

func parseSerialState(s string) (day string, id int, err error) {
	var n int
	if n, err = fmt.Sscanf(s, "%s %d", &day, &id); err != nil || n != 2 {
		return "", 0, fmt.Errorf("malformed state %q", s)
	}
	return day, id, nil
}
