package bbs

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

// ShameThreshold is the battery percentage below which a node is listed on
// the wall of shame.
const ShameThreshold = 20

func wallOfShame(nodes []domain.NodeInfo) string {
	var b strings.Builder
	for _, n := range nodes {
		if n.BatteryLevel == domain.BatteryUnknown || n.BatteryLevel >= ShameThreshold {
			continue
		}
		fmt.Fprintf(&b, "%s - Battery %d%%\n", n.DisplayName(), n.BatteryLevel)
	}
	if b.Len() == 0 {
		return "No devices with battery levels below 20% found."
	}
	return "Devices with battery levels below 20%:\n" + b.String()
}

// LoadFortunes reads one fortune per non-blank line of path. An empty path
// yields no fortunes.
func LoadFortunes(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fortunes: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read fortunes: %w", err)
	}
	return lines, nil
}
