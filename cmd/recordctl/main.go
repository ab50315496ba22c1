package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/record-store/cmd/flags"
	"github.com/ruteri/record-store/records"
	"github.com/ruteri/record-store/serializer"
)

var (
	strictFlag = &cli.BoolFlag{
		Name:  "strict",
		Usage: "fail instead of printing false when the record does not exist",
	}
	consistentFlag = &cli.BoolFlag{
		Name:  "consistent",
		Usage: "in dual mode, fail when only one backend holds the record",
	}
	createFlag = &cli.BoolFlag{
		Name:  "create",
		Usage: "create the record if it does not exist",
	}
	dataFlag = &cli.StringFlag{
		Name:  "data",
		Usage: "record content in the configured format; read from stdin when omitted",
	}
)

// session is what every command works with.
type session struct {
	ctx     context.Context
	cCtx    *cli.Context
	manager *records.Manager[serializer.Document]
	out     io.Writer
}

func withManager(fn func(s *session) error) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		logger := flags.SetupLogger(cCtx)

		manager, release, err := flags.NewManager(cCtx, logger, nil)
		if err != nil {
			return err
		}
		defer release()

		ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		return fn(&session{ctx: ctx, cCtx: cCtx, manager: manager, out: cCtx.App.Writer})
	}
}

func nameArg(cCtx *cli.Context) (string, error) {
	if cCtx.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one record name, got %d arguments", cCtx.NArg())
	}
	return cCtx.Args().First(), nil
}

func (s *session) print(doc any) error {
	ser, err := flags.NewSerializer(s.cCtx.String(flags.FormatFlag.Name))
	if err != nil {
		return err
	}

	var data []byte
	switch v := doc.(type) {
	case serializer.Document:
		data, err = ser.Serialize(v)
	case []serializer.Document:
		// A listing is printed as one document per record.
		for i, d := range v {
			chunk, serr := ser.Serialize(d)
			if serr != nil {
				return serr
			}
			if i > 0 && ser.Extension() == ".yaml" {
				data = append(data, []byte("---\n")...)
			}
			data = append(data, chunk...)
			if ser.Extension() == ".json" {
				data = append(data, '\n')
			}
		}
	default:
		return fmt.Errorf("cannot print %T", doc)
	}
	if err != nil {
		return err
	}

	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	_, err = s.out.Write(data)
	return err
}

func (s *session) input() (serializer.Document, error) {
	ser, err := flags.NewSerializer(s.cCtx.String(flags.FormatFlag.Name))
	if err != nil {
		return nil, err
	}

	var raw []byte
	if s.cCtx.IsSet(dataFlag.Name) {
		raw = []byte(s.cCtx.String(dataFlag.Name))
	} else {
		raw, err = io.ReadAll(s.cCtx.App.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	}
	return ser.Deserialize(raw)
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "recordctl",
		Usage: "Manage structured records in a local directory, a remote backend, or both",
		Flags: append(append([]cli.Flag{flags.LogServiceFlagFn("recordctl")}, flags.LogFlags...), flags.StorageFlags...),
		Commands: []*cli.Command{
			{
				Name:      "exists",
				Usage:     "Report whether a record exists",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{strictFlag, consistentFlag},
				Action: withManager(func(s *session) error {
					name, err := nameArg(s.cCtx)
					if err != nil {
						return err
					}
					var opts []records.ExistsOption
					if s.cCtx.Bool(strictFlag.Name) {
						opts = append(opts, records.MustExist())
					}
					if s.cCtx.Bool(consistentFlag.Name) {
						opts = append(opts, records.RequireConsistent())
					}
					ok, err := s.manager.Exists(s.ctx, name, opts...)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(s.out, ok)
					return err
				}),
			},
			{
				Name:      "create",
				Usage:     "Create an empty record",
				ArgsUsage: "NAME",
				Action: withManager(func(s *session) error {
					name, err := nameArg(s.cCtx)
					if err != nil {
						return err
					}
					return s.manager.Create(s.ctx, name)
				}),
			},
			{
				Name:      "read",
				Usage:     "Print a record",
				ArgsUsage: "NAME",
				Action: withManager(func(s *session) error {
					name, err := nameArg(s.cCtx)
					if err != nil {
						return err
					}
					doc, err := s.manager.Read(s.ctx, name)
					if err != nil {
						return err
					}
					return s.print(doc)
				}),
			},
			{
				Name:      "write",
				Usage:     "Replace a record with content from --data or stdin",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{createFlag, dataFlag},
				Action: withManager(func(s *session) error {
					name, err := nameArg(s.cCtx)
					if err != nil {
						return err
					}
					doc, err := s.input()
					if err != nil {
						return err
					}
					return s.manager.Write(s.ctx, name, doc, s.cCtx.Bool(createFlag.Name))
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a record",
				ArgsUsage: "NAME",
				Action: withManager(func(s *session) error {
					name, err := nameArg(s.cCtx)
					if err != nil {
						return err
					}
					return s.manager.Delete(s.ctx, name)
				}),
			},
			{
				Name:  "list",
				Usage: "Print every record",
				Action: withManager(func(s *session) error {
					docs, err := s.manager.ListContents(s.ctx)
					if err != nil {
						return err
					}
					return s.print(docs)
				}),
			},
			{
				Name:      "path",
				Usage:     "Print the local file path of a record",
				ArgsUsage: "NAME",
				Action: withManager(func(s *session) error {
					name, err := nameArg(s.cCtx)
					if err != nil {
						return err
					}
					p, err := s.manager.LocalPath(name)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(s.out, p)
					return err
				}),
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
