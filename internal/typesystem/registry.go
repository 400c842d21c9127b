package typesystem

import (
	"fmt"
	"io"
	"log"

	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/token"
)

// MemberLoader produces the declared type of one class member on first access.
type MemberLoader func(name string) (Type, bool, error)

// Class is a nominal type. Bases refer to other classes by name only, so
// declaration order and mutual references do not matter.
type Class struct {
	Name       string
	Module     string
	Bases      []Type
	Params     []TVar
	Decorators []string
	// Protocol classes are also satisfied structurally.
	Protocol bool

	members map[string]Type
	names   []string
	loader  MemberLoader
}

// NewClass creates an empty class.
func NewClass(module, name string) *Class {
	return &Class{Name: name, Module: module, members: make(map[string]Type)}
}

// QualName returns module.Name.
func (c *Class) QualName() string {
	return c.Con().QualName()
}

// Con returns a reference to this class.
func (c *Class) Con() TCon {
	return TCon{Name: c.Name, Module: c.Module}
}

// SelfType is the class instantiated with its own parameters: list[_T].
func (c *Class) SelfType() Type {
	if len(c.Params) == 0 {
		return c.Con()
	}
	args := make([]Type, len(c.Params))
	for i, p := range c.Params {
		args[i] = p
	}
	return TApp{Constructor: c.Con(), Args: args}
}

// SetMember defines or replaces a member.
func (c *Class) SetMember(name string, t Type) {
	if _, ok := c.members[name]; !ok && !c.declares(name) {
		c.names = append(c.names, name)
	}
	c.members[name] = t
}

// SetLoader installs a lazy loader for the declared member names.
func (c *Class) SetLoader(names []string, loader MemberLoader) {
	c.names = append(c.names, names...)
	c.loader = loader
}

func (c *Class) declares(name string) bool {
	for _, n := range c.names {
		if n == name {
			return true
		}
	}
	return false
}

// OwnMember looks up a member declared directly on this class.
func (c *Class) OwnMember(name string) (Type, bool, error) {
	if t, ok := c.members[name]; ok {
		return t, true, nil
	}
	if c.loader == nil || !c.declares(name) {
		return nil, false, nil
	}
	t, ok, err := c.loader(name)
	if err != nil || !ok {
		return nil, ok, err
	}
	c.members[name] = t
	return t, true, nil
}

// MemberNames lists the names declared directly on this class.
func (c *Class) MemberNames() []string {
	return c.names
}

func (c *Class) String() string {
	return fmt.Sprintf("class %s", c.SelfType())
}

// ClassLoader materializes a class declaration the registry has not seen yet.
type ClassLoader interface {
	LoadClass(con TCon) (*Class, error)
}

// Registry holds at most one Class per qualified name for one session.
type Registry struct {
	classes map[string]*Class
	failed  map[string]error
	loader  ClassLoader
	logger  *log.Logger
}

// NewRegistry creates an empty registry backed by loader. loader may be nil.
func NewRegistry(loader ClassLoader, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Registry{
		classes: make(map[string]*Class),
		failed:  make(map[string]error),
		loader:  loader,
		logger:  logger,
	}
}

// Lookup returns the class for con, loading it on first use.
func (r *Registry) Lookup(con TCon) (*Class, error) {
	qual := con.QualName()
	if c, ok := r.classes[qual]; ok {
		return c, nil
	}
	if err, ok := r.failed[qual]; ok {
		return nil, err
	}
	if r.loader == nil {
		err := diagnostics.Errorf(diagnostics.ErrI008, token.Token{}, "no declaration for class %s", qual)
		r.failed[qual] = err
		return nil, err
	}
	c, err := r.loader.LoadClass(con)
	if err != nil {
		r.failed[qual] = err
		return nil, err
	}
	r.logger.Printf("registry: loaded %s", c)
	r.classes[qual] = c
	return c, nil
}

// Define registers c, replacing any class with the same qualified name.
func (r *Registry) Define(c *Class) {
	delete(r.failed, c.QualName())
	r.classes[c.QualName()] = c
}

// Len reports how many classes are loaded.
func (r *Registry) Len() int {
	return len(r.classes)
}

// ObjectClass returns the root class reference.
func ObjectClass() TCon {
	return Builtin(config.ObjectTypeName)
}
