package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/socialgraph/internal/export"
	"github.com/efebarandurmaz/socialgraph/internal/network"
	"github.com/efebarandurmaz/socialgraph/internal/social"
	"github.com/efebarandurmaz/socialgraph/internal/storage"
)

func newPersonCmd(a *app) *cobra.Command {
	personCmd := &cobra.Command{
		Use:   "person",
		Short: "Manage persons",
	}

	var in network.NewPerson
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a person and connect them to everyone sharing an interest",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, created, err := a.svc.AddPerson(cmd.Context(), in)
			if err != nil {
				return err
			}
			if err := a.svc.Save(cmd.Context()); err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), map[string]any{"person": p, "auto_connections": created}, func() string {
				return a.renderer.Person(p) + fmt.Sprintf("\nconnected to %d person(s) with shared interests", created)
			})
		},
	}
	addCmd.Flags().StringVar(&in.Name, "name", "", "Full name")
	addCmd.Flags().IntVar(&in.Age, "age", 0, "Age in years")
	addCmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	addCmd.Flags().StringSliceVar(&in.Interests, "interests", nil, "Comma-separated interests")
	_ = addCmd.MarkFlagRequired("name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			persons := a.svc.Persons()
			return a.print(cmd.OutOrStdout(), persons, func() string { return a.renderer.Persons(persons) })
		},
	}

	findCmd := &cobra.Command{
		Use:   "find <name>",
		Short: "Find persons whose name contains the query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := a.svc.FindByName(args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), found, func() string { return a.renderer.Persons(found) })
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := network.ParseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.svc.Person(id)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), p, func() string { return a.renderer.Person(p) })
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a person and all their friendships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := network.ParseID(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.RemovePerson(cmd.Context(), id); err != nil {
				return err
			}
			if err := a.svc.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed person %d\n", id)
			return nil
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze <id>",
		Short: "Summarize a person's position in the network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := network.ParseID(args[0])
			if err != nil {
				return err
			}
			pa, err := a.svc.AnalyzePerson(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), pa, func() string { return a.renderer.PersonAnalysis(pa) })
		},
	}

	personCmd.AddCommand(addCmd, listCmd, findCmd, showCmd, removeCmd, analyzeCmd)
	return personCmd
}

func newConnectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "connect <id> <id>",
		Short: "Make two persons friends",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.svc.ConnectRaw(cmd.Context(), args[0], args[1])
			if social.IsConflict(err) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				return nil
			}
			if err != nil {
				return err
			}
			if err := a.svc.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connected %s and %s\n", args[0], args[1])
			return nil
		},
	}
}

func newDisconnectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <id> <id>",
		Short: "Remove a friendship",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := a.svc.Disconnect(cmd.Context(), ids[0], ids[1]); err != nil {
				return err
			}
			if err := a.svc.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "disconnected %d and %d\n", ids[0], ids[1])
			return nil
		},
	}
}

func newConnectionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "connections",
		Short: "List every friendship with shared interests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conns := a.svc.Connections()
			return a.print(cmd.OutOrStdout(), conns, func() string { return a.renderer.Connections(conns) })
		},
	}
}

func newEgoCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "ego <id>",
		Short: "Export a person's ego network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := network.ParseID(args[0])
			if err != nil {
				return err
			}
			g, err := a.svc.Ego(cmd.Context(), id)
			if err != nil {
				return err
			}
			return export.Write(cmd.OutOrStdout(), format, g, export.WithName(fmt.Sprintf("ego_%d", id)))
		},
	}
	cmd.Flags().StringVar(&format, "format", export.FormatMermaid, "Output format: "+strings.Join(export.Formats, ", "))
	return cmd
}

func newRecommendCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recommend <id>",
		Short: "Suggest new friends by shared interests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := network.ParseID(args[0])
			if err != nil {
				return err
			}
			subject, err := a.svc.Person(id)
			if err != nil {
				return err
			}
			recs, err := a.svc.Recommend(cmd.Context(), id, limit)
			if err != nil {
				return err
			}
			sum, err := a.svc.RecommendationSummary(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := map[string]any{"recommendations": recs, "summary": sum}
			return a.print(cmd.OutOrStdout(), out, func() string {
				return a.renderer.Recommendations(subject, recs, sum)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum suggestions (default from config)")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show network statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.svc.Statistics(cmd.Context())
			return a.print(cmd.OutOrStdout(), st, func() string { return a.renderer.Stats(st) })
		},
	}
}

func newCentralityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "centrality",
		Short: "Rank persons by degree and closeness centrality",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep := a.svc.Centrality(cmd.Context())
			return a.print(cmd.OutOrStdout(), rep, func() string { return a.renderer.Centrality(rep) })
		},
	}
}

func newCommunitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "communities",
		Short: "Detect communities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			groups := a.svc.Communities(cmd.Context())
			return a.print(cmd.OutOrStdout(), groups, func() string { return a.renderer.Communities(groups) })
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		format      string
		output      string
		communities bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the whole network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, cerr := os.Create(output)
				if cerr != nil {
					return fmt.Errorf("create %s: %w", output, cerr)
				}
				defer func() {
					if cerr := f.Close(); err == nil {
						err = cerr
					}
				}()
				w = f
			}

			if strings.EqualFold(format, "yaml") {
				return storage.EncodeYAML(w, a.svc.Snapshot())
			}
			var opts []export.Option
			if communities {
				opts = append(opts, export.WithCommunities(partition(a.svc.Communities(cmd.Context()))))
			}
			return export.Write(w, format, a.svc.Graph(), opts...)
		},
	}
	cmd.Flags().StringVar(&format, "format", export.FormatDOT, "Output format: dot, mermaid, json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().BoolVar(&communities, "communities", false, "Group nodes by detected community")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the network with a YAML or JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := storage.ReadYAMLFile(file)
			if err != nil {
				return err
			}
			if err := a.svc.Import(cmd.Context(), snap); err != nil {
				return err
			}
			if err := a.svc.Save(cmd.Context()); err != nil {
				return err
			}
			persons, connections := a.svc.Size()
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d persons and %d connections\n", persons, connections)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Snapshot file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, len(args))
	for i, raw := range args {
		id, err := network.ParseID(raw)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func partition(groups [][]social.Person) [][]int {
	out := make([][]int, len(groups))
	for i, members := range groups {
		ids := make([]int, len(members))
		for j, p := range members {
			ids[j] = p.ID
		}
		out[i] = ids
	}
	return out
}
