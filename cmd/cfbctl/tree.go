package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/cfbkit/cfb"
)

var treeDepth int

func init() {
	cmd := newTreeCmd()
	cmd.Flags().IntVar(&treeDepth, "depth", 0, "Maximum depth (0 = unlimited)")
	rootCmd.AddCommand(cmd)
}

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <file>",
		Short: "Display the storage hierarchy",
		Long: `The tree command prints the directory tree of a compound file.

Example:
  cfbctl tree report.xls
  cfbctl tree report.xls --depth 1 -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(args)
		},
	}
}

type treeNode struct {
	Name     string      `json:"name" yaml:"name"`
	Type     string      `json:"type" yaml:"type"`
	Size     uint64      `json:"size,omitempty" yaml:"size,omitempty"`
	Children []*treeNode `json:"children,omitempty" yaml:"children,omitempty"`
}

func buildTree(e *cfb.Entry, depth, maxDepth int) *treeNode {
	n := &treeNode{Name: e.Name(), Type: e.Type().String(), Size: e.Size()}
	if e.IsStream() {
		return n
	}
	n.Size = 0
	if maxDepth > 0 && depth >= maxDepth {
		return n
	}
	for _, c := range e.Children() {
		n.Children = append(n.Children, buildTree(c, depth+1, maxDepth))
	}
	return n
}

func runTree(args []string) error {
	f, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	root := buildTree(f.Root(), 0, treeDepth)
	if structured() {
		return printStructured(root)
	}
	printInfo("%s\n", root.Name)
	printTree(root.Children, "")
	return nil
}

func printTree(nodes []*treeNode, prefix string) {
	for i, n := range nodes {
		branch, next := "├── ", "│   "
		if i == len(nodes)-1 {
			branch, next = "└── ", "    "
		}
		label := n.Name
		if n.Type == "stream" {
			label += " (" + formatSize(n.Size) + ")"
		} else {
			label += "/"
		}
		printInfo("%s%s%s\n", prefix, branch, strings.TrimSpace(label))
		printTree(n.Children, prefix+next)
	}
}
