// Command bok is the operator CLI for the bookkeeping engine: import and
// export SIE4 files, close a fiscal year, and print a trial balance.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"bokforing"
)

const (
	exitOK              = 0
	exitValidation      = 2
	exitStoreUnavailable = 3
	exitFormat          = 4
	exitClosedYear      = 5
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: bok <import-sie|export-sie|close-year|trial-balance> [flags]")
		return exitValidation
	}

	cfg, err := ledger.LoadConfig(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitValidation
	}
	log := ledger.NewLogger(cfg.LogLevel)

	engine, err := ledger.NewEngine(cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreUnavailable
	}
	defer engine.Close()

	switch args[0] {
	case "import-sie":
		return cmdImportSIE(engine, args[1:])
	case "export-sie":
		return cmdExportSIE(engine, args[1:])
	case "close-year":
		return cmdCloseYear(engine, args[1:])
	case "trial-balance":
		return cmdTrialBalance(engine, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		return exitValidation
	}
}

func cmdImportSIE(engine *ledger.Engine, args []string) int {
	fs := flag.NewFlagSet("import-sie", flag.ContinueOnError)
	companyID := fs.Int64("company", 0, "company id (omit to create a new company from the SIE file's own name/org number)")
	path := fs.String("file", "", "SIE4 file path")
	if err := fs.Parse(args); err != nil {
		return exitValidation
	}
	if *path == "" {
		fmt.Fprintln(os.Stderr, "import-sie requires -file")
		return exitValidation
	}
	raw, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFormat
	}
	doc, err := ledger.DecodeSIE(raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFormat
	}
	var result *ledger.ImportResult
	if *companyID == 0 {
		result, err = engine.SIEImporter.ImportNew(doc)
	} else {
		result, err = engine.SIEImporter.Import(*companyID, doc)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreUnavailable
	}
	fmt.Printf("imported into company %d: %d verifications ok, %d skipped, %d accounts created, %d reused\n",
		result.CompanyID, result.VerificationsOK, result.VerificationsSkipped, result.AccountsCreated, result.AccountsReused)
	return exitOK
}

func cmdExportSIE(engine *ledger.Engine, args []string) int {
	fs := flag.NewFlagSet("export-sie", flag.ContinueOnError)
	fiscalYearID := fs.Int64("fiscal-year", 0, "fiscal year id")
	out := fs.String("out", "", "output file path (default stdout)")
	if err := fs.Parse(args); err != nil {
		return exitValidation
	}
	if *fiscalYearID == 0 {
		fmt.Fprintln(os.Stderr, "export-sie requires -fiscal-year")
		return exitValidation
	}
	text, err := engine.SIEWriter.Write(*fiscalYearID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFormat
	}
	if *out == "" {
		fmt.Print(text)
		return exitOK
	}
	if err := os.WriteFile(*out, []byte(text), 0644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreUnavailable
	}
	return exitOK
}

func cmdCloseYear(engine *ledger.Engine, args []string) int {
	fs := flag.NewFlagSet("close-year", flag.ContinueOnError)
	fiscalYearID := fs.Int64("fiscal-year", 0, "fiscal year id")
	nextFiscalYearID := fs.Int64("next-fiscal-year", 0, "next fiscal year id to carry balances into")
	if err := fs.Parse(args); err != nil {
		return exitValidation
	}
	if *fiscalYearID == 0 {
		fmt.Fprintln(os.Stderr, "close-year requires -fiscal-year")
		return exitValidation
	}
	report, err := engine.Closing.Close(*fiscalYearID, *nextFiscalYearID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if _, ok := err.(*ledger.ClosedYearError); ok {
			return exitClosedYear
		}
		return exitValidation
	}
	fmt.Printf("closed fiscal year %d, period result %s, %d accounts carried forward\n",
		report.FiscalYearID, report.PeriodResult, report.CarriedAccounts)
	return exitOK
}

func cmdTrialBalance(engine *ledger.Engine, args []string) int {
	fs := flag.NewFlagSet("trial-balance", flag.ContinueOnError)
	fiscalYearID := fs.Int64("fiscal-year", 0, "fiscal year id")
	asOfStr := fs.String("as-of", "", "as-of date YYYY-MM-DD (default: fiscal year end)")
	if err := fs.Parse(args); err != nil {
		return exitValidation
	}
	if *fiscalYearID == 0 {
		fmt.Fprintln(os.Stderr, "trial-balance requires -fiscal-year")
		return exitValidation
	}
	var asOf time.Time
	if *asOfStr != "" {
		t, err := time.Parse("2006-01-02", *asOfStr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitValidation
		}
		asOf = t
	}
	report, err := ledger.BuildTrialBalanceReport(engine.Balance, *fiscalYearID, asOf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreUnavailable
	}
	fmt.Print(report.Render())
	return exitOK
}
