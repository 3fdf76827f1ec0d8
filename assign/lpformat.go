package assign

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// VarName is the column name of variable i in exported programs: x<entity>_<group>.
func (p *Program) VarName(i int) string {
	e, g := p.Layout.Split(i)
	return fmt.Sprintf("x%d_%d", e, g)
}

// WriteLP writes the program in lp_solve's LP text format so a run can be
// inspected or re-solved with an external tool.
func (p *Program) WriteLP(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "/* %d entities x %d groups */\n", p.Layout.Entities, p.Layout.Groups)
	fmt.Fprint(bw, "min:")
	for i, c := range p.Objective {
		fmt.Fprintf(bw, " %+d %s", c, p.VarName(i))
	}
	fmt.Fprint(bw, ";\n")

	family := Family(-1)
	for r := range p.Constraints {
		c := &p.Constraints[r]
		if c.Family != family {
			family = c.Family
			fmt.Fprintf(bw, "\n/* %s */\n", family)
		}
		fmt.Fprintf(bw, "%s:", c.Name)
		for _, t := range c.Terms {
			if t.Coeff == 1 {
				fmt.Fprintf(bw, " +%s", p.VarName(t.Var))
			} else {
				fmt.Fprintf(bw, " %+d %s", t.Coeff, p.VarName(t.Var))
			}
		}
		fmt.Fprintf(bw, " %s %d;\n", c.Relation, c.Bound)
	}

	names := make([]string, p.Layout.Len())
	for i := range names {
		names[i] = p.VarName(i)
	}
	fmt.Fprintf(bw, "\nbin %s;\n", strings.Join(names, ","))
	return bw.Flush()
}
