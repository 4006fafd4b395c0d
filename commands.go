package meshes

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// DefaultLoadTimeout bounds how long CLI commands wait for meshes to load.
const DefaultLoadTimeout = time.Minute

// frameInterval is how often CLI commands pump ProcessReady.
const frameInterval = 10 * time.Millisecond

// NewCommand creates a Cobra command tree for mesh management.
// The returned command should be added to a parent CLI's root command.
//
// Commands provided:
//   - meshes load <name>... [--context] [--timeout]
//   - meshes address <name>...
//   - meshes export <name>... [--output]
//   - meshes import <file>
//   - meshes snapshot save <snapshot> <name>...
//   - meshes snapshot list
//   - meshes snapshot show <snapshot>
//   - meshes snapshot remove <snapshot> [--yes]
//
// Global flags: --json, --quiet, --verbose
func NewCommand(cfg Config, opts ...ManagerOption) *cobra.Command {
	var (
		jsonOutput bool
		quiet      bool
		verbose    bool
	)

	// Manager will be created in PersistentPreRunE
	var mgr *Manager

	cmd := &cobra.Command{
		Use:   "meshes",
		Short: "Load and manage meshes",
		Long:  "Fetch meshes from a content root, build their primitives, and keep snapshots of loaded meshes.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip manager creation for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			var err error
			mgr, err = NewManager(cfg, opts...)
			if err != nil {
				return fmt.Errorf("failed to initialize manager: %w", err)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if mgr == nil {
				return nil
			}
			return mgr.Close()
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// Add subcommands
	cmd.AddCommand(loadCmd(&mgr, &jsonOutput, &quiet, &verbose))
	cmd.AddCommand(addressCmd(&mgr))
	cmd.AddCommand(exportCmd(&mgr, &quiet))
	cmd.AddCommand(importCmd(&mgr, &jsonOutput, &quiet))
	cmd.AddCommand(snapshotCmd(&mgr, &jsonOutput, &quiet))

	return cmd
}

// loadFlags are shared by every command that loads meshes.
type loadFlags struct {
	contextID int
	timeout   time.Duration
}

func (f *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.contextID, "context", 0, "Render context to build primitives in")
	cmd.Flags().DurationVar(&f.timeout, "timeout", DefaultLoadTimeout, "Maximum time to wait for meshes to load")
}

func loadCmd(mgr **Manager, jsonOutput, quiet, verbose *bool) *cobra.Command {
	var flags loadFlags

	cmd := &cobra.Command{
		Use:   "load <name>...",
		Short: "Load meshes",
		Long:  "Fetch meshes from the content root and build their primitives in an in-memory render context.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var progress io.Writer
			if !*quiet && !*jsonOutput {
				progress = cmd.ErrOrStderr()
			}

			if *verbose {
				(*mgr).AddOnLoadedCallback(ListenerFunc(func(name string) {
					fmt.Fprintf(cmd.ErrOrStderr(), "Loaded %s\n", name)
				}))
			}

			if err := loadMeshes(cmd.Context(), *mgr, args, flags, progress); err != nil {
				return err
			}
			return outputMeshes(cmd.OutOrStdout(), summarize(*mgr, args), *jsonOutput)
		},
	}

	flags.register(cmd)
	return cmd
}

func addressCmd(mgr **Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "address <name>...",
		Short: "Print mesh addresses",
		Long:  "Print the address each mesh is fetched from.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				if err := validateName(name); err != nil {
					return fmt.Errorf("mesh %q: %w", name, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), (*mgr).Address(name))
			}
			return nil
		},
	}
}

func exportCmd(mgr **Manager, quiet *bool) *cobra.Command {
	var (
		flags  loadFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <name>...",
		Short: "Export meshes as a snapshot",
		Long:  "Load meshes and write them as a JSON snapshot to a file or standard output.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var progress io.Writer
			if !*quiet && output != "" {
				progress = cmd.ErrOrStderr()
			}

			if err := loadMeshes(cmd.Context(), *mgr, args, flags, progress); err != nil {
				return err
			}

			data, err := (*mgr).ExportSnapshot()
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("%w: %v", ErrStorageError, err)
			}
			if !*quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d meshes to %s (%s)\n", len(args), output, formatSize(int64(len(data))))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the snapshot to a file instead of standard output")
	return cmd
}

func importCmd(mgr **Manager, jsonOutput, quiet *bool) *cobra.Command {
	var contextID int

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a snapshot file",
		Long:  "Import a JSON snapshot and build its primitives in an in-memory render context. Use - to read standard input.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading snapshot: %w", err)
			}

			added, err := (*mgr).ImportSnapshot(data)
			if err != nil {
				return err
			}
			if err := buildAll(*mgr, ContextID(contextID)); err != nil {
				return err
			}

			if !*quiet && !*jsonOutput {
				fmt.Fprintf(cmd.ErrOrStderr(), "Imported %d meshes\n", added)
			}
			return outputMeshes(cmd.OutOrStdout(), summarize(*mgr, (*mgr).GetModelNames()), *jsonOutput)
		},
	}

	cmd.Flags().IntVar(&contextID, "context", 0, "Render context to build primitives in")
	return cmd
}

func snapshotCmd(mgr **Manager, jsonOutput, quiet *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage stored snapshots",
		Long:  "Save, list, inspect and remove snapshots kept in local storage.",
	}

	cmd.AddCommand(snapshotSaveCmd(mgr, quiet))
	cmd.AddCommand(snapshotListCmd(mgr, jsonOutput))
	cmd.AddCommand(snapshotShowCmd(mgr, jsonOutput))
	cmd.AddCommand(snapshotRemoveCmd(mgr, quiet))
	cmd.AddCommand(snapshotPathCmd(mgr))
	return cmd
}

func snapshotSaveCmd(mgr **Manager, quiet *bool) *cobra.Command {
	var flags loadFlags

	cmd := &cobra.Command{
		Use:   "save <snapshot> <name>...",
		Short: "Load meshes and store them as a snapshot",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, names := args[0], args[1:]
			if err := validateName(snapshot); err != nil {
				return fmt.Errorf("snapshot %q: %w", snapshot, err)
			}

			var progress io.Writer
			if !*quiet {
				progress = cmd.ErrOrStderr()
			}
			if err := loadMeshes(cmd.Context(), *mgr, names, flags, progress); err != nil {
				return err
			}

			if err := (*mgr).SaveSnapshot(snapshot); err != nil {
				return err
			}
			if !*quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %d meshes to %s\n", len(names), (*mgr).SnapshotPath(snapshot))
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func snapshotListCmd(mgr **Manager, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshots, err := (*mgr).ListSnapshots()
			if err != nil {
				return err
			}
			return outputSnapshots(cmd.OutOrStdout(), snapshots, *jsonOutput)
		},
	}
}

func snapshotShowCmd(mgr **Manager, jsonOutput *bool) *cobra.Command {
	var contextID int

	cmd := &cobra.Command{
		Use:   "show <snapshot>",
		Short: "Show the meshes in a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := (*mgr).LoadSnapshot(args[0]); err != nil {
				return err
			}
			if err := buildAll(*mgr, ContextID(contextID)); err != nil {
				return err
			}
			return outputMeshes(cmd.OutOrStdout(), summarize(*mgr, (*mgr).GetModelNames()), *jsonOutput)
		},
	}

	cmd.Flags().IntVar(&contextID, "context", 0, "Render context to build primitives in")
	return cmd
}

func snapshotRemoveCmd(mgr **Manager, quiet *bool) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <snapshot>",
		Short: "Remove a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			// Confirmation prompt
			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Remove snapshot %s? [y/N]: ", name)
				if !confirmPrompt(cmd.InOrStdin()) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			if err := (*mgr).RemoveSnapshot(name); err != nil {
				return err
			}

			if !*quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed snapshot %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}

func snapshotPathCmd(mgr **Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "path <snapshot>",
		Short: "Print the path of a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateName(args[0]); err != nil {
				return fmt.Errorf("snapshot %q: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), (*mgr).SnapshotPath(args[0]))
			return nil
		},
	}
}

// loadMeshes requests every name and pumps ProcessReady on a fresh
// in-memory render context until all of them are finished. A fetch or
// upload failure of any name ends the wait with that error.
func loadMeshes(ctx context.Context, m *Manager, names []string, flags loadFlags, progress io.Writer) error {
	id := ContextID(flags.contextID)
	m.AttachRenderer(id, NewMemoryRenderer())

	for _, name := range names {
		if _, err := m.RequestLoad(MeshStump{Name: name, ContextID: id}, nil); err != nil {
			return err
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	start := time.Now()
	if progress != nil {
		// Hide cursor while the progress line is live
		fmt.Fprint(progress, "\x1b[?25l")
		defer fmt.Fprint(progress, "\x1b[?25h\n")
	}

	for {
		if _, err := m.ProcessReady(id); err != nil {
			return err
		}

		done := 0
		for _, name := range names {
			if err := m.LoadError(name); err != nil {
				return fmt.Errorf("loading %q: %w", name, err)
			}
			if model := m.GetModelByName(name); model != nil && !model.Pending() {
				done++
			}
		}

		if progress != nil {
			renderProgress(progress, done, len(names), start)
		}
		if done == len(names) {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %d of %d meshes: %w", len(names)-done, len(names), ctx.Err())
		case <-ticker.C:
		}
	}
}

// buildAll builds the primitives of imported models in a fresh in-memory
// render context.
func buildAll(m *Manager, id ContextID) error {
	m.AttachRenderer(id, NewMemoryRenderer())
	_, err := m.BuildImported(id)
	return err
}

// confirmPrompt reads from stdin and returns true only if the user types 'y' or 'Y'.
// Returns false for empty input or any other response (default is no).
func confirmPrompt(r io.Reader) bool {
	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		response := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return response == "y" || response == "yes"
	}
	return false
}

// Output helpers

// meshSummary is the CLI view of a loaded model.
type meshSummary struct {
	Name      string      `json:"name"`
	Vertices  int         `json:"vertices"`
	Triangles int         `json:"triangles"`
	Built     bool        `json:"built"`
	BBox      BoundingBox `json:"bbox"`
	Size      int64       `json:"size"`
}

// summarize describes the finished models among names, in order.
func summarize(m *Manager, names []string) []meshSummary {
	summaries := make([]meshSummary, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		model := m.GetModelByName(name)
		if model == nil || model.Pending() || seen[name] {
			continue
		}
		seen[name] = true

		data := model.Mesh.Data
		summaries = append(summaries, meshSummary{
			Name:      name,
			Vertices:  data.VertexCount(),
			Triangles: data.TriangleCount(),
			Built:     model.Mesh.Primitive.Built,
			BBox:      model.Mesh.BBox,
			Size:      int64(4 * (len(data.Coords) + len(data.Normals) + len(data.UVs) + len(data.Indices))),
		})
	}
	return summaries
}

func outputMeshes(w io.Writer, meshes []meshSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meshes)
	}

	if len(meshes) == 0 {
		fmt.Fprintln(w, "No meshes loaded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MESH\tVERTICES\tTRIANGLES\tSIZE\tEXTENT")
	for _, m := range meshes {
		size := m.BBox.Size()
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%.2f x %.2f x %.2f\n",
			m.Name,
			m.Vertices,
			m.Triangles,
			formatSize(m.Size),
			size[0], size[1], size[2],
		)
	}
	return tw.Flush()
}

func outputSnapshots(w io.Writer, snapshots []SnapshotInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshots)
	}

	if len(snapshots) == 0 {
		fmt.Fprintln(w, "No snapshots stored")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SNAPSHOT\tSIZE\tMODIFIED")
	for _, s := range snapshots {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			s.Name,
			formatSize(s.Size),
			s.ModifiedAt.Format("2006-01-02 15:04"),
		)
	}
	return tw.Flush()
}

func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// renderProgress renders the load progress line to the writer.
// Format: Loading [============>                 ] 2/5 (elapsed: 3s)
func renderProgress(w io.Writer, done, total int, startTime time.Time) {
	const barWidth = 30

	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}

	var bar string
	if filled >= barWidth {
		bar = strings.Repeat("=", barWidth)
	} else if filled > 0 {
		bar = strings.Repeat("=", filled) + ">" + strings.Repeat(" ", barWidth-filled-1)
	} else {
		bar = ">" + strings.Repeat(" ", barWidth-1)
	}

	// \r to overwrite, \x1b[K to clear to end of line
	fmt.Fprintf(w, "\r\x1b[KLoading [%s] %d/%d (elapsed: %s)", bar, done, total, formatDuration(time.Since(startTime)))
}

// formatDuration formats a duration as human-readable text (e.g., "5s", "2m 30s", "1h 5m").
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	d = d.Round(time.Second)

	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60

	if hours > 0 {
		if mins > 0 {
			return fmt.Sprintf("%dh %dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	if mins > 0 {
		if secs > 0 {
			return fmt.Sprintf("%dm %ds", mins, secs)
		}
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}
