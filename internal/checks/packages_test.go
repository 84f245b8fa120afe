package checks

// signingPackages are the packages that handle private scalars.
var signingPackages = []string{
	"github.com/mahdiidarabi/ecdsa-deterministic/pkg/detecdsa",
	"github.com/mahdiidarabi/ecdsa-deterministic/internal/rfc6979",
	"github.com/mahdiidarabi/ecdsa-deterministic/internal/group",
	"github.com/mahdiidarabi/ecdsa-deterministic/internal/keyfile",
}
