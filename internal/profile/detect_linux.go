//go:build linux

package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// dmiDir is where the kernel exposes SMBIOS strings
var dmiDir = "/sys/class/dmi/id"

// detectPlatformBoard reads the board ID and product name from DMI sysfs
func detectPlatformBoard(ctx context.Context) (*Board, error) {
	boardID, err := readDMI("board_name")
	if err != nil {
		return nil, fmt.Errorf("failed to read board name: %w", err)
	}

	// product_name is optional, the board ID alone is enough for a table match
	productName, _ := readDMI("product_name")

	return &Board{
		BoardID:     boardID,
		ProductName: productName,
	}, nil
}

func readDMI(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dmiDir, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
