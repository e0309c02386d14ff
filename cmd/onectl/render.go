package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"one-rpc/one"
)

var (
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	cardStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// stateColor gives each VM state family a color.
func stateColor(s one.VMState) lipgloss.Color {
	switch s {
	case one.StateActive:
		return lipgloss.Color("42") // green
	case one.StatePending, one.StateHold, one.StateInit, one.StateCloning:
		return lipgloss.Color("214") // amber
	case one.StateFailed, one.StateCloningFailure:
		return lipgloss.Color("196") // red
	default:
		return lipgloss.Color("245") // grey
	}
}

func stateLabel(s one.VMState) string {
	return lipgloss.NewStyle().Bold(true).Foreground(stateColor(s)).Render(s.String())
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func renderVM(vm *one.VM) string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s (#%d)", vm.Name, vm.ID)),
		row("state", stateLabel(vm.State)),
		row("owner", vm.UName),
		row("cpu", vm.Template.CPU),
		row("memory", vm.Template.Memory+" MB"),
	}
	if ips := vm.IPs(); len(ips) > 0 {
		lines = append(lines, row("ip", strings.Join(ips, ", ")))
	}
	if vm.STime > 0 {
		lines = append(lines, row("started", time.Unix(vm.STime, 0).UTC().Format(time.RFC3339)))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func renderUser(u *one.User) string {
	key := u.Template.SSHPublicKey
	if key == "" {
		key = "-"
	} else if len(key) > 40 {
		key = key[:37] + "..."
	}
	return cardStyle.Render(strings.Join([]string{
		titleStyle.Render(fmt.Sprintf("%s (#%d)", u.Name, u.ID)),
		row("group", u.GName),
		row("tokens", strconv.Itoa(len(u.LoginTokens))),
		row("ssh key", key),
	}, "\n"))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		StyleFunc(func(r, _ int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func renderVMs(pool *one.VMPool) string {
	if len(pool.VMs) == 0 {
		return "no VMs"
	}
	t := newTable("ID", "NAME", "STATE", "IP")
	for i := range pool.VMs {
		vm := &pool.VMs[i]
		t.Row(strconv.Itoa(vm.ID), vm.Name, stateLabel(vm.State), strings.Join(vm.IPs(), ","))
	}
	return t.Render()
}

func renderTemplates(pool *one.TemplatePool) string {
	if len(pool.Templates) == 0 {
		return "no templates"
	}
	t := newTable("ID", "NAME", "CPU", "MEMORY")
	for _, tp := range pool.Templates {
		t.Row(strconv.Itoa(tp.ID), tp.Name, tp.Template.CPU, tp.Template.Memory)
	}
	return t.Render()
}
