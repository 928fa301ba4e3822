//go:build linux

package bios

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// DefaultBiosCfgDir is where the hp-bioscfg driver publishes firmware attributes
const DefaultBiosCfgDir = "/sys/class/firmware-attributes/hp-bioscfg"

// SysfsProvider sets BIOS settings through the firmware-attributes class
type SysfsProvider struct {
	root string
}

// newPlatformProvider creates a new Linux settings provider
func newPlatformProvider(cfg ProviderConfig) Provider {
	if cfg.Root == "" {
		cfg.Root = DefaultBiosCfgDir
	}
	return NewSysfsProvider(cfg.Root)
}

// NewSysfsProvider creates a provider rooted at a firmware-attributes device directory
func NewSysfsProvider(root string) *SysfsProvider {
	return &SysfsProvider{root: root}
}

// Exists checks whether the attributes directory is present and readable
func (p *SysfsProvider) Exists(ctx context.Context) (bool, error) {
	entries, err := os.ReadDir(filepath.Join(p.root, "attributes"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return len(entries) > 0, nil
}

// SetSetting writes value to the attribute's current_value. Filesystem errors are
// translated to the return codes SetBiosSetting would report. The password is
// only checked against the empty encoding, authenticated writes are not supported.
func (p *SysfsProvider) SetSetting(ctx context.Context, name, value, password string) (uint32, error) {
	if password != EmptyPassword {
		return ReturnAccessDenied, nil
	}

	if ok, err := p.Exists(ctx); err != nil {
		return 0, err
	} else if !ok {
		return 0, ErrProviderAbsent
	}

	attrDir := filepath.Join(p.root, "attributes", name)
	if _, err := os.Stat(attrDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ReturnNotSupported, nil
		}
		return 0, fmt.Errorf("failed to stat attribute %s: %w", name, err)
	}

	if err := ctx.Err(); err != nil {
		return ReturnTimeout, nil
	}

	err := os.WriteFile(filepath.Join(attrDir, "current_value"), []byte(value), 0644)
	switch {
	case err == nil:
	case errors.Is(err, syscall.EINVAL):
		return ReturnInvalidParameter, nil
	case errors.Is(err, fs.ErrPermission):
		return ReturnAccessDenied, nil
	default:
		return ReturnFailed, nil
	}

	if p.pendingReboot() {
		return ReturnRebootRequired, nil
	}
	return ReturnSuccess, nil
}

// pendingReboot reports whether the driver flagged changes that apply after reboot
func (p *SysfsProvider) pendingReboot() bool {
	data, err := os.ReadFile(filepath.Join(p.root, "attributes", "pending_reboot"))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "1"
}
