package simulate

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteNXY prints one line per time point: the time followed by each
// variable, in %.9e. limit > 0 restricts output to the first limit
// variables.
func WriteNXY(w io.Writer, res *Result, header bool, limit int) error {
	n := len(res.Variables)
	if limit > 0 && limit < n {
		n = limit
	}

	bw := bufio.NewWriter(w)
	if header {
		cols := make([]string, 0, n+1)
		cols = append(cols, fmt.Sprintf("%-15s", "time"))
		for _, v := range res.Variables[:n] {
			cols = append(cols, fmt.Sprintf("%-15s", v))
		}
		fmt.Fprintln(bw, strings.Join(cols, " "))
	}

	tr := res.Trajectory
	for i, t := range tr.Times {
		bw.WriteString(fmt.Sprintf("%.9e", t))
		for _, v := range tr.Values[i][:n] {
			bw.WriteString(fmt.Sprintf(" %.9e", v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ListLabels prints "index name p0 [constant]" for each variable
func ListLabels(w io.Writer, vars []string, p0 []float64, constant []bool, limit int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "List of variables and initial concentrations:")
	for i, v := range vars {
		if limit > 0 && i >= limit {
			break
		}
		line := fmt.Sprintf("%d %s %s", i+1, v, strconv.FormatFloat(p0[i], 'g', -1, 64))
		if i < len(constant) && constant[i] {
			line += " constant"
		}
		fmt.Fprintln(bw, line)
	}
	return bw.Flush()
}
