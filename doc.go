// Package meshes loads named 3D mesh assets for a scene graph and uploads
// them to per-context GPU renderers.
//
// The package serves two primary use cases:
//
//  1. Programmatic API via Manager - the owner of the render loop creates a
//     Manager with NewManager, attaches one Renderer per render context, and
//     calls ProcessReady once per frame.
//
//  2. Embeddable CLI via NewCommand - parent CLI tools can attach a
//     "meshes" subcommand tree to their Cobra root command, providing
//     commands like "mytool meshes load", "mytool meshes export", etc.
//
// # Loading
//
// RequestLoad returns immediately. The name is bound to a shared placeholder
// mesh while a fetch worker downloads "<ContentURL><name>_mesh.json". The
// decoded payload lands on a ready queue and the next ProcessReady call for
// the payload's render context builds the GPU primitive and the bounding box,
// swaps the placeholder for the finished model and notifies listeners.
//
// # Thread Safety
//
// All Manager methods can be called concurrently. Fetch workers only append
// to the ready queue; primitives are created from the goroutine that calls
// ProcessReady. Listeners are invoked on that goroutine without the manager
// lock held.
//
// # Snapshots
//
// ExportSnapshot and ImportSnapshot move finished meshes between managers as
// JSON. GPU handles are not portable: exported primitives are marked as not
// built and BuildImported recreates them for a render context.
package meshes
