package flowcore

import (
	"fmt"

	"github.com/spf13/cobra"
)

var topK int

var topCmd = &cobra.Command{
	Use:   "top <sources|dests|ports> <file.pcap|file.pcapng>",
	Short: "Replay a capture file and print a single top-N talker view",
	Args:  cobra.ExactArgs(2),
	RunE:  runTop,
}

func init() {
	topCmd.Flags().IntVar(&topK, "k", 10, "number of entries to print")
}

func runTop(cmd *cobra.Command, args []string) error {
	view, path := args[0], args[1]
	tracker, err := replayFile(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch view {
	case "sources":
		for _, s := range tracker.TopSourceIPs(topK) {
			fmt.Fprintf(out, "%s\t%d\n", ipToText(s.IP), s.Count)
		}
	case "dests":
		for _, d := range tracker.TopDestIPs(topK) {
			fmt.Fprintf(out, "%s\t%d\n", ipToText(d.IP), d.Count)
		}
	case "ports":
		for _, p := range tracker.TopPorts(topK) {
			fmt.Fprintf(out, "%d\t%s\t%d\n", p.Port, serviceOrDash(p.Port), p.Count)
		}
	default:
		return fmt.Errorf("top: unknown view %q (want sources, dests, or ports)", view)
	}
	return nil
}
