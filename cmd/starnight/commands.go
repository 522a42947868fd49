package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/starnight-hq/starnight-client/internal/app"
	"github.com/starnight-hq/starnight-client/internal/config"
	"github.com/starnight-hq/starnight-client/internal/logger"
	"github.com/starnight-hq/starnight-client/pkg/community"
	"github.com/starnight-hq/starnight-client/pkg/httpclient"
)

// session is the per-invocation runtime shared by every subcommand.
type session struct {
	rt *app.Runtime
}

func newRootCmd() (*cobra.Command, *session) {
	s := &session{}

	root := &cobra.Command{
		Use:           "starnight",
		Short:         "Command line client for the starnight community backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.open(cmd)
		},
	}

	root.AddCommand(
		s.getCmd(),
		s.postCmd(),
		s.uploadCmd(),
		s.hotCmd(),
		s.meCmd(),
		s.probeCmd(),
	)
	return root, s
}

func (s *session) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.DebugObj("starnight starting", "config", cfg)

	rt, err := app.NewRuntime(cmd.Context(), cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize runtime", "error", err)
		return err
	}
	s.rt = rt
	return nil
}

// close releases the runtime. It is safe to call when open never ran.
func (s *session) close() error {
	defer logger.Close()
	if s.rt == nil {
		return nil
	}
	err := s.rt.Close()
	s.rt = nil
	return err
}

func (s *session) getCmd() *cobra.Command {
	var query []string
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Send an authenticated GET and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := queryOptions(query)
			if err != nil {
				return err
			}
			resp, err := s.rt.Client().Get(cmd.Context(), args[0], opts...)
			if err != nil {
				return s.explain(err)
			}
			return writeBody(cmd.OutOrStdout(), resp.Body())
		},
	}
	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "Query parameter as key=value (repeatable)")
	return cmd
}

func (s *session) postCmd() *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "post <path>",
		Short: "Send an authenticated POST with a JSON body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body any
			if strings.TrimSpace(data) != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("--data is not valid JSON")
				}
				body = json.RawMessage(data)
			}
			resp, err := s.rt.Client().Post(cmd.Context(), args[0], body)
			if err != nil {
				return s.explain(err)
			}
			return writeBody(cmd.OutOrStdout(), resp.Body())
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	return cmd
}

func (s *session) uploadCmd() *cobra.Command {
	var (
		field  string
		file   string
		fields []string
	)
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file as multipart form data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open upload file: %w", err)
			}
			defer f.Close()

			opts := []httpclient.RequestOption{httpclient.WithFile(field, filepath.Base(file), f)}
			for _, kv := range fields {
				key, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("form field %q must be key=value", kv)
				}
				opts = append(opts, httpclient.WithMultipartField(key, value))
			}

			resp, err := s.rt.Client().Post(cmd.Context(), args[0], nil, opts...)
			if err != nil {
				return s.explain(err)
			}
			return writeBody(cmd.OutOrStdout(), resp.Body())
		},
	}
	cmd.Flags().StringVar(&field, "field", "file", "Form field name of the file part")
	cmd.Flags().StringVar(&file, "file", "", "Path of the file to upload")
	cmd.Flags().StringArrayVar(&fields, "form", nil, "Extra form field as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (s *session) hotCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "hot",
		Short: "List the currently popular posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			posts, err := community.NewService(s.rt.Client()).HotPosts(cmd.Context(), size)
			if err != nil {
				return s.explain(err)
			}
			return writeJSON(cmd.OutOrStdout(), posts)
		},
	}
	cmd.Flags().IntVar(&size, "size", 10, "Number of posts to list")
	return cmd
}

func (s *session) meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			member, err := community.NewService(s.rt.Client()).Me(cmd.Context())
			if err != nil {
				return s.explain(err)
			}
			return writeJSON(cmd.OutOrStdout(), member)
		},
	}
}

func (s *session) probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check whether the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.rt.Client().Alive(cmd.Context()); err != nil {
				return fmt.Errorf("backend unreachable: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backend reachable at %s\n", s.rt.Client().BaseURL())
			return nil
		},
	}
}

// explain adds the maintenance notice to errors that ended in the maintenance page.
func (s *session) explain(err error) error {
	if !errors.Is(err, httpclient.ErrUnderMaintenance) {
		return err
	}
	if notice, ok := s.rt.Navigator().LastNotice(); ok && notice.Message != "" {
		return fmt.Errorf("%w (%s)", err, notice.Message)
	}
	return err
}

func queryOptions(pairs []string) ([]httpclient.RequestOption, error) {
	opts := make([]httpclient.RequestOption, 0, len(pairs))
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("query %q must be key=value", kv)
		}
		opts = append(opts, httpclient.WithQuery(key, value))
	}
	return opts, nil
}

func writeBody(w io.Writer, body []byte) error {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			return writeJSON(w, v)
		}
	}
	_, err := fmt.Fprintln(w, string(body))
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
