package scene

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrContractViolation is returned when a plugin cannot satisfy the lifecycle contract.
var ErrContractViolation = errors.New("plugin contract violation")

// Plugin is a feature module hosted by the scene. Init is called on
// registration and Destroy on unregistration or host shutdown.
type Plugin interface {
	Name() string
	Init(ctx *Context) error
	Destroy()
}

// ContractChecker lets a plugin report a broken lifecycle before Init runs.
type ContractChecker interface {
	CheckContract() error
}

// Funcs adapts plain functions to Plugin. Both hooks are required.
type Funcs struct {
	PluginName string
	OnInit     func(ctx *Context) error
	OnDestroy  func()
}

func (f *Funcs) Name() string { return f.PluginName }

func (f *Funcs) Init(ctx *Context) error { return f.OnInit(ctx) }

func (f *Funcs) Destroy() { f.OnDestroy() }

// CheckContract fails if either lifecycle hook is missing.
func (f *Funcs) CheckContract() error {
	switch {
	case f == nil:
		return fmt.Errorf("%w: nil plugin", ErrContractViolation)
	case f.OnInit == nil:
		return fmt.Errorf("%w: %q has no init", ErrContractViolation, f.PluginName)
	case f.OnDestroy == nil:
		return fmt.Errorf("%w: %q has no destroy", ErrContractViolation, f.PluginName)
	}
	return nil
}

func checkPlugin(p Plugin) error {
	if p == nil {
		return fmt.Errorf("%w: nil plugin", ErrContractViolation)
	}
	// A nil pointer wrapped in the interface is not caught by p == nil.
	if v := reflect.ValueOf(p); v.Kind() == reflect.Pointer && v.IsNil() {
		return fmt.Errorf("%w: nil %T", ErrContractViolation, p)
	}
	if c, ok := p.(ContractChecker); ok {
		if err := c.CheckContract(); err != nil {
			return err
		}
	}
	if p.Name() == "" {
		return fmt.Errorf("%w: plugin has no name", ErrContractViolation)
	}
	return nil
}
