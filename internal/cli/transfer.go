package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "导出共享日历文档",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "用 JSON 文件整体替换共享日历",
	Long: `用 JSON 文件整体替换共享日历。文件格式与 export 的输出相同，
也接受旧版按 cityRecords 分组的格式。运行中的服务会在缓存过期后读到新数据。`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	exportCmd.Flags().StringP("out", "o", "", "输出文件，默认输出到标准输出")
	importCmd.Flags().StringP("in", "i", "", "输入文件")
	_ = importCmd.MarkFlagRequired("in")
}

func writeDocument(w io.Writer, doc domain.CalendarDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func readDocument(r io.Reader) (domain.CalendarDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return domain.DecodeCalendarDocument(data)
}

func runExport(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")

	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	doc, err := e.store.Document(cmd.Context())
	if err != nil {
		return fmt.Errorf("无法读取共享日历: %w", err)
	}

	if out == "" {
		if err := writeDocument(cmd.OutOrStdout(), doc); err != nil {
			return err
		}
	} else if err := writeDocumentFile(out, doc); err != nil {
		return err
	}

	slog.Info("已导出共享日历", "days", len(doc))
	return nil
}

// writeDocumentFile 把文档写入 path，关闭文件失败同样视为写入失败
func writeDocumentFile(path string, doc domain.CalendarDocument) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("无法写入 %s: %w", path, cerr)
		}
	}()

	return writeDocument(f, doc)
}

func runImport(cmd *cobra.Command, args []string) error {
	in, _ := cmd.Flags().GetString("in")

	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := readDocument(f)
	if err != nil {
		return fmt.Errorf("无法解析 %s: %w", in, err)
	}

	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.store.ReplaceDocument(cmd.Context(), doc); err != nil {
		return err
	}

	slog.Info("已导入共享日历", "file", in, "days", len(doc))
	return nil
}
