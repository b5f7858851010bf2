/*
Package cli provides helpers shared by the querydict commands.

Output formatting supports text, JSON and CSV. CSV requires the result to
implement Table:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Commands return ErrNoMatch when a record did not match; ExitCode maps it to
exit status 1 and any other error to 2.

Long batches report progress on stderr:

	progress := cli.NewProgressReporter(os.Stderr, "records")
	progress.Start(total)
	progress.Update(done)
	progress.Finish()

SetupSignalHandler cancels a context on SIGINT or SIGTERM, and ReloadSignals
delivers SIGHUP for rule reloads.
*/
package cli
