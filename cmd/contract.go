package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	internalApp "github.com/haierkeys/contract-version-service/internal/app"
	"github.com/haierkeys/contract-version-service/internal/dao"
	"github.com/haierkeys/contract-version-service/internal/domain"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ManifestEntry one upload in an ingest manifest; File is relative to the manifest.
// ManifestEntry 入库清单中的一次上传，File 相对清单所在目录
type ManifestEntry struct {
	Filename   string                   `json:"filename"`
	File       string                   `json:"file"`
	ContractID int64                    `json:"contractId,omitempty"`
	Clauses    []domain.ExtractedClause `json:"clauses"`
}

// BatchLine 批量入库输出行
type BatchLine struct {
	Index      int    `json:"index"`
	Filename   string `json:"filename"`
	Outcome    string `json:"outcome,omitempty"`
	ContractID int64  `json:"contractId,omitempty"`
	Version    int64  `json:"version,omitempty"`
	Degraded   bool   `json:"degraded,omitempty"`
	Error      string `json:"error,omitempty"`
}

// LoadManifest reads a JSON manifest and the raw bytes of every entry.
// LoadManifest 读取入库清单及每个条目的原始文件
func LoadManifest(path string) ([]*domain.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read manifest")
	}
	var entries []ManifestEntry
	if err := sonic.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "parse manifest")
	}

	base := filepath.Dir(path)
	uploads := make([]*domain.Upload, 0, len(entries))
	for i, e := range entries {
		if e.File == "" {
			return nil, errors.Errorf("manifest entry %d: file is required", i)
		}
		file := e.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(base, file)
		}
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "manifest entry %d", i)
		}
		filename := e.Filename
		if filename == "" {
			filename = filepath.Base(file)
		}
		uploads = append(uploads, &domain.Upload{
			Filename:   filename,
			Content:    content,
			ContractID: e.ContractID,
			Clauses:    e.Clauses,
		})
	}
	return uploads, nil
}

// openApp builds the app container for one-shot commands, logging to stderr only.
// openApp 为一次性命令创建 App Container，日志只输出到 stderr
func openApp(configPath string) (*internalApp.App, func(), error) {
	path, err := resolveConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	cfg, _, err := internalApp.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	if err := initStorageWithConfig(cfg); err != nil {
		return nil, nil, err
	}
	db, err := dao.NewDBEngineWithConfig(cfg.GetDatabaseConfig(), bootstrapLogger)
	if err != nil {
		return nil, nil, err
	}
	a, err := internalApp.NewApp(cfg, bootstrapLogger, db)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := a.Shutdown(ctx); err != nil {
			bootstrapLogger.Warn("shutdown error", zap.Error(err))
		}
	}
	return a, closeFn, nil
}

func printJSON(v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	var (
		config   string
		manifest string
		id       int64
		version  int64
		timeout  time.Duration
		hash     string
		output   string
	)

	ingestCmd := &cobra.Command{
		Use:   "ingest -f manifest.json",
		Short: "Ingest uploads listed in a JSON manifest // 按清单批量入库",
		RunE: func(cmd *cobra.Command, args []string) error {
			uploads, err := LoadManifest(manifest)
			if err != nil {
				return err
			}
			a, closeFn, err := openApp(config)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			results := a.ContractService.IngestBatch(ctx, uploads)
			lines := make([]BatchLine, 0, len(results))
			failed := 0
			for _, r := range results {
				line := BatchLine{Index: r.Index, Filename: uploads[r.Index].Filename}
				if r.Err != nil {
					failed++
					line.Error = r.Err.Error()
				} else {
					line.Outcome = r.Result.Outcome.String()
					line.Version = r.Result.Version
					line.Degraded = r.Result.Degraded
					if r.Result.Contract != nil {
						line.ContractID = r.Result.Contract.ID
					}
				}
				lines = append(lines, line)
			}
			if err := printJSON(lines); err != nil {
				return err
			}
			if failed > 0 {
				return errors.Errorf("%d of %d uploads failed", failed, len(results))
			}
			return nil
		},
	}
	ingestCmd.Flags().StringVarP(&manifest, "file", "f", "", "manifest file")
	ingestCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "batch timeout")
	_ = ingestCmd.MarkFlagRequired("file")

	historyCmd := &cobra.Command{
		Use:   "history --id N",
		Short: "Print the version history of a contract // 打印合同版本历史",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeFn, err := openApp(config)
			if err != nil {
				return err
			}
			defer closeFn()

			history, err := a.VersionService.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(history)
		},
	}

	reconstructCmd := &cobra.Command{
		Use:   "reconstruct --id N [--version V]",
		Short: "Print the clause snapshot of a contract version // 打印合同某版本的条款快照",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeFn, err := openApp(config)
			if err != nil {
				return err
			}
			defer closeFn()

			clauses, err := a.VersionService.Reconstruct(cmd.Context(), id, version)
			if err != nil {
				return err
			}
			return printJSON(clauses)
		},
	}
	reconstructCmd.Flags().Int64Var(&version, "version", 0, "version, 0 for current")

	archiveCmd := &cobra.Command{
		Use:   "archive --hash H [-o file]",
		Short: "Fetch the archived raw upload of a content hash // 按内容哈希取回归档的原始文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeFn, err := openApp(config)
			if err != nil {
				return err
			}
			defer closeFn()

			content, err := a.ContractService.Archived(cmd.Context(), hash)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = os.Stdout.Write(content)
				return err
			}
			return errors.Wrap(os.WriteFile(output, content, 0644), "write archive output")
		},
	}
	archiveCmd.Flags().StringVar(&hash, "hash", "", "content hash (sha256 hex)")
	archiveCmd.Flags().StringVarP(&output, "output", "o", "", "output file, stdout when empty")
	_ = archiveCmd.MarkFlagRequired("hash")

	for _, c := range []*cobra.Command{ingestCmd, historyCmd, reconstructCmd, archiveCmd} {
		c.Flags().StringVarP(&config, "config", "c", "", "config file")
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{historyCmd, reconstructCmd} {
		c.Flags().Int64Var(&id, "id", 0, "contract id")
		_ = c.MarkFlagRequired("id")
	}
}
