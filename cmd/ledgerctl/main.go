// Command ledgerctl runs maintenance tasks against the ledger store:
// export and import backups, render reports and wipe data.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"milkledger/internal/cli"
	"milkledger/internal/config"
	"milkledger/internal/core"
	"milkledger/internal/log"
	"milkledger/internal/report"
	"milkledger/internal/services"
)

const usage = `usage: ledgerctl <command> [flags]

commands:
  export   write the backup document (-o file, default stdout)
  import   load a backup document (-file path, -yes to skip the prompt)
  report   render a month (-month YYYY-MM, -format json|csv|pdf, -o file)
  bill     render a customer bill (-customer id, -month YYYY-MM, -o file)
  backup   write one backup file into BACKUP_DIR
  info     print storage statistics
  clear    delete deliveries and customers, reset settings; the last
           backup time is kept (-yes to skip the prompt)
`

var errAborted = errors.New("aborted")

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg := config.Load()

	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Component = log.ComponentCLI
	lc.Output = os.Stderr
	logger := log.New(lc)
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, errAborted) {
			fmt.Fprintln(os.Stderr, "aborted")
			os.Exit(1)
		}
		logger.Error("Command failed", log.FieldOperation, os.Args[1], log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	var (
		out      = fs.String("o", "", "output file (default stdout)")
		file     = fs.String("file", "", "backup document to import")
		yes      = fs.Bool("yes", false, "do not ask for confirmation")
		month    = fs.String("month", "", "month as YYYY-MM (default current month)")
		format   = fs.String("format", "json", "report format: json, csv or pdf")
		customer = fs.String("customer", "", "customer id")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch cmd {
	case "export", "import", "report", "bill", "backup", "info", "clear":
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	rt, err := cli.OpenLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Cleanup()
	svc := rt.Service

	switch cmd {
	case "export":
		data, err := svc.Export(ctx)
		if err != nil {
			return err
		}
		return writeOutput(*out, data)

	case "import":
		if *file == "" {
			return errors.New("import needs -file")
		}
		data, err := os.ReadFile(*file)
		if err != nil {
			return err
		}
		pending, err := svc.PrepareImport(ctx, data)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Import %d days and %d customers", pending.Days, pending.Customers)
		if pending.ExportDate != "" {
			fmt.Fprintf(os.Stderr, " exported %s", pending.ExportDate)
		}
		fmt.Fprintln(os.Stderr, ". This replaces all current data.")
		if !*yes && !confirm(os.Stdin, "Continue?") {
			svc.CancelImport(pending.Token)
			return errAborted
		}
		return svc.ConfirmImport(ctx, pending.Token)

	case "report":
		ym, err := monthFlag(*month, svc)
		if err != nil {
			return err
		}
		rep, err := svc.Month(ym)
		if err != nil {
			return err
		}
		var data []byte
		switch strings.ToLower(*format) {
		case "json":
			data, err = json.MarshalIndent(rep, "", "  ")
		case "csv":
			data, err = report.MonthCSV(rep)
		case "pdf":
			data, err = report.MonthPDF(rep, svc.LocalNow())
		default:
			return fmt.Errorf("unknown format %q", *format)
		}
		if err != nil {
			return err
		}
		return writeOutput(*out, data)

	case "bill":
		ym, err := monthFlag(*month, svc)
		if err != nil {
			return err
		}
		st, err := svc.CustomerMonth(*customer, ym)
		if err != nil {
			return err
		}
		data, err := report.BillPDF(st, svc.LocalNow())
		if err != nil {
			return err
		}
		return writeOutput(*out, data)

	case "backup":
		path, err := services.NewBackupJob(svc, cfg.BackupDir, cfg.BackupKeep, logger).Run(ctx)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "info":
		info, err := svc.StorageInfo(ctx)
		if err != nil {
			return err
		}
		totals := svc.Totals(nil, nil)
		fmt.Printf("Delivery days:  %d\n", info.Entries)
		fmt.Printf("Customers:      %d\n", info.Customers)
		fmt.Printf("Stored size:    %d bytes\n", info.Bytes)
		fmt.Printf("Total volume:   %s L\n", report.FormatVolume(totals.Volume))
		fmt.Printf("Total revenue:  %s\n", report.FormatAmount(totals.Revenue))
		if info.LastBackup != nil {
			fmt.Printf("Last backup:    %s\n", info.LastBackup.In(cfg.Location()).Format("2006-01-02 15:04"))
		} else {
			fmt.Println("Last backup:    never")
		}
		return nil

	case "clear":
		if !*yes && !confirm(os.Stdin, "Delete all deliveries and customers and reset the settings?") {
			return errAborted
		}
		return svc.ClearAll(ctx)
	}
	return nil
}

func monthFlag(v string, svc *services.LedgerService) (core.YearMonth, error) {
	if v == "" {
		return core.YearMonthOf(svc.LocalNow()), nil
	}
	return core.ParseYearMonth(v)
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// confirm asks a y/N question on stderr.
func confirm(in io.Reader, question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
