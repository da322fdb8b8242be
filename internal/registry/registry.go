// Package registry implements the two-phase class registry (spec §5):
// read every input .class file into memory first, then render each
// top-level class once every class it might reference is known. This
// two-phase split is what lets the renderer inline an anonymous inner
// class's body into its enclosing `new Foo() { ... }` call site even
// when the two classes were read from different input files.
//
// Grounded on the teacher's db_manager.go DBManager: a sync.RWMutex-
// guarded map of named entries with a Connect-then-lookup shape, adapted
// here from database connections to parsed class files.
package registry

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/javadec/javadec/internal/cache"
	"github.com/javadec/javadec/internal/classfile"
	"github.com/javadec/javadec/internal/config"
	"github.com/javadec/javadec/internal/constpool"
	javaerrors "github.com/javadec/javadec/internal/errors"
	"github.com/javadec/javadec/internal/render"
	"github.com/javadec/javadec/internal/types"
)

// Registry holds every class file read for one decompile run, keyed by
// JVM internal name (spec §5's "class table").
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*classfile.ClassFile
	raw     map[string][]byte // internal name -> source bytes, for cache.Hash

	// bodies caches a rendered anonymous class's member body, deduped
	// across concurrent enclosing-class renders that reference the same
	// anonymous class, the way the teacher's DBManager dedupes a
	// connection lookup rather than re-dialing it per caller.
	bodies singleflight.Group
	cache  sync.Map // internal name -> renderedAnon
}

type renderedAnon struct {
	displayType string
	body        string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{classes: map[string]*classfile.ClassFile{}, raw: map[string][]byte{}}
}

// ReadAll is phase 1 (spec §5): parses every input path concurrently and
// installs each ClassFile under its internal name. A read error aborts
// the whole run via the errgroup's first-error cancellation, matching
// spec §7's fail-fast default.
func (r *Registry) ReadAll(ctx context.Context, paths []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			buf, err := os.ReadFile(p)
			if err != nil {
				return javaerrors.Wrap(javaerrors.KindIOReadError, err, "reading %s", p)
			}
			cf, err := classfile.Read(buf)
			if err != nil {
				return withFile(err, p)
			}
			r.put(cf)
			r.putRaw(cf.Name(), buf)
			return nil
		})
	}
	return g.Wait()
}

func (r *Registry) put(cf *classfile.ClassFile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[cf.Name()] = cf
}

func (r *Registry) putRaw(name string, buf []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raw[name] = buf
}

// rawBytes returns the source bytes a class was read from, if ReadAll
// installed any (registry_test.go's classEntry-built test fixtures never
// do, since they skip ReadAll entirely).
func (r *Registry) rawBytes(name string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.raw[name]
	return b, ok
}

// Get looks up a class by its JVM internal name.
func (r *Registry) Get(internalName string) (*classfile.ClassFile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cf, ok := r.classes[internalName]
	return cf, ok
}

// Names returns every internal name currently registered, sorted (spec
// §8's determinism property: the same input set renders in the same
// order every run).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.classes))
	for name := range r.classes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// isAnonymous reports whether a class's simple name is a bare digit
// string ("1", "2", ...), the javac convention for an anonymous or local
// class (spec §4.9's anonymous-class detection).
func isAnonymous(internalName string) bool {
	dollar := strings.LastIndexByte(internalName, '$')
	if dollar < 0 {
		return false
	}
	suffix := internalName[dollar+1:]
	if suffix == "" {
		return false
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// RenderAll is phase 2 (spec §5): renders every non-anonymous top-level
// class to Java source, keyed by internal name. Anonymous classes are
// never rendered standalone; they're inlined at their `new` call site via
// renderAnonBody, invoked on demand through AnonymousBodyLookup.
func (r *Registry) RenderAll(ctx context.Context, cfg *config.Config, onRendered ...func(name, source string)) (map[string]string, error) {
	names := r.Names()
	var top []string
	for _, n := range names {
		if !isAnonymous(n) {
			top = append(top, n)
		}
	}

	var store *cache.Cache
	if cfg.CacheDSN != "" {
		c, err := cache.Open(cfg.CacheDSN)
		if err != nil {
			return nil, err
		}
		store = c
		defer store.Close()
	}

	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	out := make(map[string]string, len(top))
	for _, name := range top {
		name := name
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			cf, _ := r.Get(name)

			var hash string
			if store != nil {
				if raw, ok := r.rawBytes(name); ok {
					hash = cache.Hash(raw)
					if src, hit, err := store.Get(ctx, hash); err == nil && hit {
						mu.Lock()
						out[name] = src
						mu.Unlock()
						for _, fn := range onRendered {
							fn(name, src)
						}
						return nil
					}
				}
			}

			src, err := r.renderClass(cf, cfg)
			if err != nil {
				if cfg.FailOnError {
					return withFile(err, name)
				}
				src = fmt.Sprintf("// decompilation failed: %v\n", err)
			} else if store != nil && hash != "" {
				if perr := store.Put(ctx, hash, name, src); perr != nil && cfg.Debug {
					fmt.Fprintf(os.Stderr, "javadec: cache: %v\n", perr)
				}
			}
			mu.Lock()
			out[name] = src
			mu.Unlock()
			for _, fn := range onRendered {
				fn(name, src)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// anonLookup implements render.AnonymousBodyLookup against this
// registry's own class table, deduping concurrent lookups of the same
// anonymous class across multiple enclosing renders with singleflight —
// the same "don't redial, share the live one" idea as DBManager's
// connection map, applied to a rendered body instead of a *sql.DB.
func (r *Registry) anonLookup(cfg *config.Config) render.AnonymousBodyLookup {
	return func(internalName string) (string, string, bool) {
		if v, ok := r.cache.Load(internalName); ok {
			ra := v.(renderedAnon)
			return ra.displayType, ra.body, true
		}
		cf, ok := r.Get(internalName)
		if !ok {
			return "", "", false
		}
		v, err, _ := r.bodies.Do(internalName, func() (interface{}, error) {
			displayType, body, rerr := r.renderAnonBody(cf, cfg)
			if rerr != nil {
				return renderedAnon{}, rerr
			}
			ra := renderedAnon{displayType: displayType, body: body}
			r.cache.Store(internalName, ra)
			return ra, nil
		})
		if err != nil {
			return "", "", false
		}
		ra := v.(renderedAnon)
		return ra.displayType, ra.body, true
	}
}

// renderAnonBody renders only the member list of an anonymous class (no
// enclosing `class Foo$1 extends ... {` wrapper; the caller supplies that
// via `new <Supertype>() { ... }`), plus the display type the `new`
// expression should name: the single implemented interface if there is
// one, otherwise the superclass.
func (r *Registry) renderAnonBody(cf *classfile.ClassFile, cfg *config.Config) (string, string, error) {
	ci := render.NewClassInfo(packageOf(cf.Name()))
	rn := render.New(ci)
	rn.UseMathConstants = cfg.UseConstants != config.ConstantsNever
	rn.AnonBody = r.anonLookup(cfg)
	rn.InternalName = types.InternalName

	if err := r.renderMembers(rn, cf, cfg); err != nil {
		return "", "", err
	}

	displayType := superDisplayName(cf)
	return displayType, rn.String(), nil
}

func superDisplayName(cf *classfile.ClassFile) string {
	if len(cf.Interfaces) == 1 {
		return simpleNameOf(constpool.ClassName(cf.Interfaces[0]))
	}
	if cf.SuperName() != "" && cf.SuperName() != "java/lang/Object" {
		return simpleNameOf(cf.SuperName())
	}
	if len(cf.Interfaces) > 0 {
		return simpleNameOf(constpool.ClassName(cf.Interfaces[0]))
	}
	return "Object"
}

func simpleNameOf(internalName string) string {
	t := types.ClassFromInternalName(internalName)
	return t.Simple
}

func packageOf(internalName string) string {
	t := types.ClassFromInternalName(internalName)
	return t.Pkg
}

// withFile attaches a file name to err for reporting, using
// DecompileError's own WithFile when err carries one (the common case,
// since every internal package builds errors through javaerrors.New/Wrap)
// and falling back to a plain wrap otherwise.
func withFile(err error, file string) error {
	if de, ok := err.(*javaerrors.DecompileError); ok {
		return de.WithFile(file)
	}
	return javaerrors.Wrap(javaerrors.KindIOReadError, err, "in %s", file)
}

// withMethod attaches a method name to err, mirroring withFile.
func withMethod(err error, method string) error {
	if de, ok := err.(*javaerrors.DecompileError); ok {
		return de.WithMethod(method)
	}
	return javaerrors.Wrap(javaerrors.KindIllegalStackState, err, "in method %s", method)
}
