package app

import (
	"github.com/specialistvlad/testgrid/internal/registry"
	"github.com/specialistvlad/testgrid/modules/assert"
	"github.com/specialistvlad/testgrid/modules/env_vars"
	"github.com/specialistvlad/testgrid/modules/file_io"
	"github.com/specialistvlad/testgrid/modules/ftp_transfer"
	"github.com/specialistvlad/testgrid/modules/http_request"
	"github.com/specialistvlad/testgrid/modules/print"
	"github.com/specialistvlad/testgrid/modules/report"
	"github.com/specialistvlad/testgrid/modules/sftp_transfer"
	"github.com/specialistvlad/testgrid/modules/ssh_command"
	varconv "github.com/specialistvlad/testgrid/modules/var"
	"github.com/specialistvlad/testgrid/modules/webdav"
)

// coreModules is the definitive list of all modules that are compiled into
// the testgrid binary.
var coreModules = []registry.Module{
	&http_request.Module{},
	&ssh_command.Module{},
	&sftp_transfer.Module{},
	&ftp_transfer.Module{},
	&webdav.Module{},
	&file_io.Module{},
	&varconv.Module{},
	&assert.Module{},
	&print.Module{},
	&env_vars.Module{},
	&report.Module{},
}

// CoreModules returns a copy of the built-in module catalog.
func CoreModules() []registry.Module {
	return append([]registry.Module(nil), coreModules...)
}
