//go:build windows

package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/StackExchange/wmi"
)

// Win32_BaseBoard represents motherboard WMI class
type Win32_BaseBoard struct {
	Manufacturer string
	Product      string
}

// Win32_ComputerSystem represents the system model WMI class
type Win32_ComputerSystem struct {
	Manufacturer string
	Model        string
}

// detectPlatformBoard queries WMI for the HP board ID and product name
func detectPlatformBoard(ctx context.Context) (*Board, error) {
	var boards []Win32_BaseBoard
	if err := wmi.Query("SELECT Manufacturer, Product FROM Win32_BaseBoard", &boards); err != nil {
		return nil, fmt.Errorf("failed to query Win32_BaseBoard: %w", err)
	}
	if len(boards) == 0 {
		return nil, fmt.Errorf("no Win32_BaseBoard instance found")
	}

	board := &Board{BoardID: strings.TrimSpace(boards[0].Product)}

	var systems []Win32_ComputerSystem
	if err := wmi.Query("SELECT Manufacturer, Model FROM Win32_ComputerSystem", &systems); err == nil && len(systems) > 0 {
		board.ProductName = strings.TrimSpace(systems[0].Model)
	}

	return board, nil
}
