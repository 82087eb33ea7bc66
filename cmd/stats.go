package cmd

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
)

// writeStatsTable renders one row per frame plus a total footer.
func writeStatsTable(w io.Writer, frames []sorter.Stats) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(append([]string{"frame"}, sorter.StatsHeader...))

	var total sorter.Stats
	for i, st := range frames {
		table.Append(append([]string{strconv.Itoa(i)}, st.Row()...))
		total.Add(st)
	}
	if len(frames) > 1 {
		table.SetFooter(append([]string{"TOTAL"}, total.Row()...))
	}
	table.Render()
}

func displayStats(title string, frames []sorter.Stats) {
	var buf bytes.Buffer
	writeStatsTable(&buf, frames)
	logger.Noticef("%s\n%s", title, buf.String())
}

// formatMatrix renders a column-major 4x4 matrix as a table of rows.
func formatMatrix(w io.Writer, m [16]float32) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for row := 0; row < 4; row++ {
		cells := make([]string, 4)
		for col := 0; col < 4; col++ {
			cells[col] = fmt.Sprintf("%.4f", m[col*4+row])
		}
		table.Append(cells)
	}
	table.Render()
}
