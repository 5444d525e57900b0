package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cfgroup/cfgroup/pkg/annotate"
	apperrors "github.com/cfgroup/cfgroup/pkg/errors"
	"github.com/cfgroup/cfgroup/pkg/pipeline"
)

// annotateCommand creates the annotate command for managing node comments
// and boundary markers.
func (c *CLI) annotateCommand() *cobra.Command {
	var marker string

	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Manage node comments and boundary markers",
		Long: `Manage node comments and boundary markers.

Annotations live in a TOML file next to your graph. A node whose comment
contains the boundary marker (default "` + pipeline.DefaultMarker + `") stops
region collection at that node.

Examples:
  cfgroup annotate mark notes.toml 7            # Mark node 7 as a boundary
  cfgroup annotate unmark notes.toml 7
  cfgroup annotate set notes.toml 3 "loop head"
  cfgroup annotate list notes.toml`,
	}

	cmd.PersistentFlags().StringVar(&marker, "marker", pipeline.DefaultMarker, "boundary marker substring")

	cmd.AddCommand(c.annotateMarkCommand(&marker))
	cmd.AddCommand(c.annotateUnmarkCommand(&marker))
	cmd.AddCommand(c.annotateSetCommand())
	cmd.AddCommand(c.annotateClearCommand())
	cmd.AddCommand(c.annotateListCommand(&marker))

	return cmd
}

// annotateMarkCommand creates the "annotate mark" subcommand.
func (c *CLI) annotateMarkCommand(marker *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mark <file> <node>",
		Short: "Append the boundary marker to a node's comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateAnnotations(args[0], args[1], func(a *annotate.Annotations, node int) error {
				if err := apperrors.ValidateMarker(*marker); err != nil {
					return err
				}
				if err := a.Mark(node, *marker); err != nil {
					return err
				}
				printSuccess("Marked node %d as boundary", node)
				return nil
			})
		},
	}
}

// annotateUnmarkCommand creates the "annotate unmark" subcommand.
func (c *CLI) annotateUnmarkCommand(marker *string) *cobra.Command {
	return &cobra.Command{
		Use:   "unmark <file> <node>",
		Short: "Strip the boundary marker from a node's comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateAnnotations(args[0], args[1], func(a *annotate.Annotations, node int) error {
				if err := a.Unmark(node, *marker); err != nil {
					return err
				}
				printSuccess("Unmarked node %d", node)
				return nil
			})
		},
	}
}

// annotateSetCommand creates the "annotate set" subcommand.
func (c *CLI) annotateSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <file> <node> <comment>",
		Short: "Set a node's comment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateAnnotations(args[0], args[1], func(a *annotate.Annotations, node int) error {
				if err := a.Set(node, args[2]); err != nil {
					return err
				}
				printSuccess("Set comment on node %d", node)
				return nil
			})
		},
	}
}

// annotateClearCommand creates the "annotate clear" subcommand.
func (c *CLI) annotateClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <file> <node>",
		Short: "Remove a node's comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateAnnotations(args[0], args[1], func(a *annotate.Annotations, node int) error {
				a.Clear(node)
				printSuccess("Cleared node %d", node)
				return nil
			})
		},
	}
}

// annotateListCommand creates the "annotate list" subcommand.
func (c *CLI) annotateListCommand(marker *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list <file>",
		Short: "List all annotated nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := annotate.Load(args[0])
			if err != nil {
				return fmt.Errorf("load annotations %s: %w", args[0], err)
			}
			if a.Len() == 0 {
				printInfo("No annotations in %s", args[0])
				return nil
			}
			for _, node := range a.Nodes() {
				comment, _ := a.Comment(node)
				key := fmt.Sprintf("node %d", node)
				if a.HasMarker(node, *marker) {
					key += " *"
				}
				printKeyValue(key, strings.ReplaceAll(comment, "\n", " "))
			}
			printDetail("* boundary node")
			return nil
		},
	}
}

// updateAnnotations loads the store at path, applies fn for the node
// argument, and saves the store back.
func updateAnnotations(path, nodeArg string, fn func(*annotate.Annotations, int) error) error {
	node, err := strconv.Atoi(nodeArg)
	if err != nil {
		return fmt.Errorf("invalid node id %q", nodeArg)
	}

	a, err := annotate.Load(path)
	if err != nil {
		return fmt.Errorf("load annotations %s: %w", path, err)
	}
	if err := fn(a, node); err != nil {
		return err
	}
	if err := annotate.Save(a, path); err != nil {
		return fmt.Errorf("save annotations %s: %w", path, err)
	}
	return nil
}
