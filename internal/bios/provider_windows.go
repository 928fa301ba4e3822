//go:build windows

package bios

import (
	"context"
	"fmt"
	"runtime"

	"github.com/StackExchange/wmi"
	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

const (
	wmiNamespace = `root\HP\InstrumentedBIOS`
	wmiClass     = "HP_BiosSettingInterface"
	setMethod    = "SetBiosSetting"

	// returned by CoInitializeEx when COM is already initialized on the thread
	sFalse = 0x00000001
)

// HP_BiosSettingInterface represents the HP settings interface WMI class
type HP_BiosSettingInterface struct {
	InstanceName string
	Active       bool
}

// WMIProvider sets BIOS settings through HP's InstrumentedBIOS WMI namespace
type WMIProvider struct{}

// newPlatformProvider creates a new Windows settings provider
func newPlatformProvider(cfg ProviderConfig) Provider {
	return &WMIProvider{}
}

// Exists checks whether any HP_BiosSettingInterface instance is enumerable
func (p *WMIProvider) Exists(ctx context.Context) (bool, error) {
	var dst []HP_BiosSettingInterface
	query := wmi.CreateQuery(&dst, "")
	if err := wmi.QueryNamespace(query, &dst, wmiNamespace); err != nil {
		return false, fmt.Errorf("WMI query failed: %w", err)
	}
	return len(dst) > 0, nil
}

// SetSetting invokes SetBiosSetting on the first interface instance
func (p *WMIProvider) SetSetting(ctx context.Context, name, value, password string) (uint32, error) {
	// COM apartments are per OS thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		oleErr, ok := err.(*ole.OleError)
		if !ok || (oleErr.Code() != ole.S_OK && oleErr.Code() != sFalse) {
			return 0, fmt.Errorf("COM initialization failed: %w", err)
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		return 0, err
	}
	defer unknown.Release()

	locator, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return 0, err
	}
	defer locator.Release()

	serviceRaw, err := oleutil.CallMethod(locator, "ConnectServer", nil, wmiNamespace)
	if err != nil {
		return 0, ErrProviderAbsent
	}
	service := serviceRaw.ToIDispatch()
	defer service.Release()

	resultRaw, err := oleutil.CallMethod(service, "ExecQuery", "SELECT * FROM "+wmiClass)
	if err != nil {
		return 0, ErrProviderAbsent
	}
	result := resultRaw.ToIDispatch()
	defer result.Release()

	countVariant, err := oleutil.GetProperty(result, "Count")
	if err != nil {
		return 0, err
	}
	if countVariant.Val == 0 {
		return 0, ErrProviderAbsent
	}

	itemRaw, err := oleutil.CallMethod(result, "ItemIndex", 0)
	if err != nil {
		return 0, err
	}
	item := itemRaw.ToIDispatch()
	defer item.Release()

	methodsRaw, err := oleutil.GetProperty(item, "Methods_")
	if err != nil {
		return 0, err
	}
	methods := methodsRaw.ToIDispatch()
	defer methods.Release()

	methodRaw, err := oleutil.CallMethod(methods, "Item", setMethod)
	if err != nil {
		return 0, fmt.Errorf("%s not exposed by %s: %w", setMethod, wmiClass, err)
	}
	method := methodRaw.ToIDispatch()
	defer method.Release()

	inClassRaw, err := oleutil.GetProperty(method, "InParameters")
	if err != nil {
		return 0, err
	}
	inClass := inClassRaw.ToIDispatch()
	defer inClass.Release()

	paramsRaw, err := oleutil.CallMethod(inClass, "SpawnInstance_")
	if err != nil {
		return 0, err
	}
	params := paramsRaw.ToIDispatch()
	defer params.Release()

	for key, val := range map[string]string{"Name": name, "Value": value, "Password": password} {
		if _, err := oleutil.PutProperty(params, key, val); err != nil {
			return 0, fmt.Errorf("failed to set parameter %s: %w", key, err)
		}
	}

	outRaw, err := oleutil.CallMethod(item, "ExecMethod_", setMethod, params)
	if err != nil {
		return 0, fmt.Errorf("%s invocation failed: %w", setMethod, err)
	}
	out := outRaw.ToIDispatch()
	defer out.Release()

	retVariant, err := oleutil.GetProperty(out, "Return")
	if err != nil {
		return 0, err
	}

	return toReturnCode(retVariant.Value())
}

func toReturnCode(v interface{}) (uint32, error) {
	switch n := v.(type) {
	case uint32:
		return n, nil
	case int32:
		return uint32(n), nil
	case int64:
		return uint32(n), nil
	case uint64:
		return uint32(n), nil
	case int:
		return uint32(n), nil
	default:
		return 0, fmt.Errorf("unexpected return type %T", v)
	}
}
