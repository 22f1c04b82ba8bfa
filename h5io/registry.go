package h5io

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

var (
	mu     sync.RWMutex
	traits = builtinTraits() // Trait[T] by T

	// Fixed arrays of registered flat types get a derived schema on first
	// use.
	derived sync.Map // reflect.Type -> *Schema
	derive  singleflight.Group
)

// Register binds T to tr. A type can be registered once.
func Register[T any](tr Trait[T]) error {
	if err := tr.validate(); err != nil {
		return err
	}
	typ := typeOf[T]()
	mu.Lock()
	defer mu.Unlock()
	if _, ok := traits[typ]; ok {
		return errors.Wrapf(ErrDuplicateType, "%s", typ)
	}
	traits[typ] = tr
	return nil
}

// MustRegister is like Register but panics on error. It is meant for init
// functions.
func MustRegister[T any](tr Trait[T]) {
	if err := Register(tr); err != nil {
		panic(err)
	}
}

// RegisterCustom binds T to schema with a hand-written serializer pair.
func RegisterCustom[T any](schema *Schema, ser Serializer[T], deser Deserializer[T]) error {
	return Register(Trait[T]{Schema: schema, Codec: Custom(ser, deser)})
}

// Lookup returns the trait registered for T, deriving it for fixed arrays
// of flat types.
func Lookup[T any]() (Trait[T], error) {
	typ := typeOf[T]()
	mu.RLock()
	tr, ok := traits[typ]
	mu.RUnlock()
	if ok {
		return tr.(Trait[T]), nil
	}
	if typ.Kind() != reflect.Array {
		return Trait[T]{}, errors.Wrapf(ErrUnsupportedType, "%s is not registered", typ)
	}
	s, err := arraySchema(typ)
	if err != nil {
		return Trait[T]{}, err
	}
	return Trait[T]{Schema: s, Codec: Flat[T]()}, nil
}

// SchemaOf returns the schema registered for T.
func SchemaOf[T any]() (*Schema, error) {
	tr, err := Lookup[T]()
	return tr.Schema, err
}

// flatSchema returns the schema of a registered or derived flat type.
func flatSchema(typ reflect.Type) (*Schema, error) {
	mu.RLock()
	tr, ok := traits[typ]
	mu.RUnlock()
	if ok {
		s, kind := describe(tr)
		if kind != CodecFlat {
			return nil, errors.Wrapf(ErrUnsupportedType, "%s is not flat", typ)
		}
		return s, nil
	}
	if typ.Kind() == reflect.Array {
		return arraySchema(typ)
	}
	return nil, errors.Wrapf(ErrUnsupportedType, "%s is not registered", typ)
}

// arraySchema derives the schema of [N]E. Concurrent first uses of one
// type build it once.
func arraySchema(typ reflect.Type) (*Schema, error) {
	if s, ok := derived.Load(typ); ok {
		return s.(*Schema), nil
	}
	v, err, _ := derive.Do(fmt.Sprintf("%p", typ), func() (interface{}, error) {
		if s, ok := derived.Load(typ); ok {
			return s, nil
		}
		elem, err := flatSchema(typ.Elem())
		if err != nil {
			return nil, errors.Wrapf(err, "deriving %s", typ)
		}
		s, _ := derived.LoadOrStore(typ, ArrayOf(elem, typ.Len()))
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Schema), nil
}

// describer is implemented by every Trait instantiation so the registry
// can inspect traits without knowing their type parameter.
type describer interface {
	describe() (*Schema, CodecKind)
}

func (tr Trait[T]) describe() (*Schema, CodecKind) { return tr.Schema, tr.Codec.kind }

func describe(tr interface{}) (*Schema, CodecKind) {
	return tr.(describer).describe()
}
