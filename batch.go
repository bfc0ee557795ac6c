package container

// Declaration is one unit of batch declaration: a closure that declares
// exactly one resource against c. Since each resource's Registration is
// typed by its own instance type parameter, a batch of declarations
// spanning different types can only be homogenized behind a closure,
// unlike the teacher's untyped-factory ServiceRegistration struct.
type Declaration func(c Container) error

// Declared wraps a single Declare(...).Provide(...)... call chain into a
// Declaration for use with DeclareAll.
//
// Example:
//
//	err := container.DeclareAll(c,
//	    container.Declared(func(c container.Container) *container.Registration[*Database] {
//	        return container.Declare(c, dbResource).Provide(NewDatabase)
//	    }),
//	)
func Declared[T any](build func(c Container) *Registration[T]) Declaration {
	return func(c Container) error {
		build(c)

		return nil
	}
}

// DeclareAll runs each Declaration against c in order, stopping at the
// first error.
func DeclareAll(c Container, declarations ...Declaration) error {
	for _, d := range declarations {
		if err := d(c); err != nil {
			return err
		}
	}

	return nil
}
