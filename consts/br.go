package consts

import (
	"fmt"
	"strings"
)

var BrStateName map[string]string

func init() {
	BrStateName = make(map[string]string)

	BrStateName["AC"] = "Acre"
	BrStateName["AL"] = "Alagoas"
	BrStateName["AP"] = "Amapá"
	BrStateName["AM"] = "Amazonas"
	BrStateName["BA"] = "Bahia"
	BrStateName["CE"] = "Ceará"
	BrStateName["DF"] = "Distrito Federal"
	BrStateName["ES"] = "Espírito Santo"
	BrStateName["GO"] = "Goiás"
	BrStateName["MA"] = "Maranhão"
	BrStateName["MT"] = "Mato Grosso"
	BrStateName["MS"] = "Mato Grosso do Sul"
	BrStateName["MG"] = "Minas Gerais"
	BrStateName["PA"] = "Pará"
	BrStateName["PB"] = "Paraíba"
	BrStateName["PR"] = "Paraná"
	BrStateName["PE"] = "Pernambuco"
	BrStateName["PI"] = "Piauí"
	BrStateName["RJ"] = "Rio de Janeiro"
	BrStateName["RN"] = "Rio Grande do Norte"
	BrStateName["RS"] = "Rio Grande do Sul"
	BrStateName["RO"] = "Rondônia"
	BrStateName["RR"] = "Roraima"
	BrStateName["SC"] = "Santa Catarina"
	BrStateName["SP"] = "São Paulo"
	BrStateName["SE"] = "Sergipe"
	BrStateName["TO"] = "Tocantins"
}

// StateTitle - human readable title of a brazilian state code, "São Paulo (SP)"
func StateTitle(code string) (string, error) {
	if name, ok := BrStateName[strings.ToUpper(code)]; !ok {
		return code, fmt.Errorf("%s not exist", code)
	} else {
		return fmt.Sprintf("%s (%s)", name, strings.ToUpper(code)), nil
	}
}
