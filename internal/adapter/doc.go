// Package adapter finds candidate switches on the network.
//
// NmapDiscoverer sweeps targets with nmap for hosts that answer on the SSH
// port and flags those whose MAC vendor or SSH banner points to Eltex. The
// result is a list of candidates that can be added to the device inventory;
// no facts are collected here.
package adapter
